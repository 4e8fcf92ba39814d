// Package seed generates deterministic mock alumni, mentors, requests and
// connections for local development and tests.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/alumni-mentorship-api/internal/models"
	"github.com/noah-isme/alumni-mentorship-api/internal/repository"
	"github.com/noah-isme/alumni-mentorship-api/internal/service"
)

var (
	firstNames = []string{"Ayu", "Budi", "Citra", "Dimas", "Eka", "Fajar", "Gita", "Hadi", "Indah", "Joko", "Kartika", "Lukas", "Maya", "Nanda", "Oki", "Putri"}
	lastNames  = []string{"Santoso", "Wijaya", "Pratama", "Lestari", "Nugroho", "Halim", "Siregar", "Kusuma", "Saputra", "Wibowo"}
	degrees    = []string{"Computer Science", "Information Systems", "Economics", "Management", "Industrial Engineering", "Communication"}
	companies  = []string{"Tokopedia", "Gojek", "Bank Mandiri", "Telkom", "Unilever", "Traveloka", "Accenture", "Pertamina"}
	industries = []string{"Technology", "Finance", "Consulting", "Energy", "Telecommunications", "Consumer Goods", "Education"}
	skills     = []string{"Software Engineering", "Data Science", "Product Management", "Marketing", "Leadership", "UX Design", "Finance", "Entrepreneurship", "Cloud Architecture", "Public Speaking"}
	goals      = []string{"Move into a lead role", "Switch to a new industry", "Prepare for graduate school", "Launch a startup", "Grow technical depth"}
	situations = []string{"Junior engineer", "Fresh graduate", "Mid-level analyst", "Career break", "Team lead"}
	commitment = []string{"1 hour per week", "2 hours per week", "Bi-weekly call", "Monthly session"}
)

// Options controls dataset size and randomness.
type Options struct {
	Seed    int64
	Mentors int
	// Now anchors generated timestamps; defaults to time.Now().
	Now time.Time
}

// Dataset is a generated batch of directory and mentorship records.
type Dataset struct {
	Alumni   []models.Alumni
	Mentors  []models.MentorProfile
	Requests []models.MenteeRequest
}

// Summary reports what Load inserted.
type Summary struct {
	Alumni      int
	Mentors     int
	Requests    int
	Connections int
}

// Generate builds a dataset. The same options always yield the same records.
func Generate(opts Options) Dataset {
	if opts.Mentors <= 0 {
		opts.Mentors = 20
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	now := opts.Now.UTC().Truncate(time.Second)

	total := opts.Mentors * 3
	ds := Dataset{Alumni: make([]models.Alumni, 0, total)}
	for i := 0; i < total; i++ {
		first := pick(rng, firstNames)
		last := pick(rng, lastNames)
		ds.Alumni = append(ds.Alumni, models.Alumni{
			ID:             fmt.Sprintf("alumni-%03d", i+1),
			FullName:       first + " " + last,
			Email:          fmt.Sprintf("%s.%s%d@alumni.example.edu", strings.ToLower(first), strings.ToLower(last), i+1),
			GraduationYear: 2000 + rng.Intn(24),
			Degree:         pick(rng, degrees),
			CurrentCompany: pick(rng, companies),
			Industry:       pick(rng, industries),
		})
	}

	for i := 0; i < opts.Mentors; i++ {
		alumni := ds.Alumni[i]
		created := now.Add(-time.Duration(rng.Intn(365*24)) * time.Hour)
		ds.Mentors = append(ds.Mentors, models.MentorProfile{
			AlumniID:          alumni.ID,
			Specializations:   sample(rng, skills, 1+rng.Intn(3)),
			Industries:        appendUnique([]string{alumni.Industry}, sample(rng, industries, rng.Intn(2))...),
			YearsOfExperience: 1 + rng.Intn(20),
			MaxMentees:        1 + rng.Intn(5),
			Availability:      pickAvailability(rng),
			MentorshipType:    []models.MentorshipType{models.MentorshipTypeFree, models.MentorshipTypePaid, models.MentorshipTypeBoth}[rng.Intn(3)],
			IsActive:          rng.Intn(10) > 0,
			CreatedAt:         created,
		})
	}

	for i := opts.Mentors; i < total; i++ {
		created := now.Add(-time.Duration(rng.Intn(90*24)) * time.Hour)
		ds.Requests = append(ds.Requests, models.MenteeRequest{
			ID:                        fmt.Sprintf("request-%03d", i-opts.Mentors+1),
			AlumniID:                  ds.Alumni[i].ID,
			RequestedSpecializations:  sample(rng, skills, 1+rng.Intn(2)),
			CareerGoals:               pick(rng, goals),
			CurrentSituation:          pick(rng, situations),
			PreferredMentorIndustries: sample(rng, industries, rng.Intn(3)),
			TimeCommitment:            pick(rng, commitment),
			Status:                    models.MenteeRequestPending,
			CreatedAt:                 created,
		})
	}
	return ds
}

// Load generates a dataset into store and pairs roughly a third of the
// requests with their best suggested mentor.
func Load(ctx context.Context, store *repository.MemoryStore, opts Options, logger *zap.Logger) (Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ds := Generate(opts)
	rng := rand.New(rand.NewSource(opts.Seed + 1))

	alumniRepo := store.Alumni()
	for i := range ds.Alumni {
		if err := alumniRepo.Upsert(ctx, &ds.Alumni[i]); err != nil {
			return Summary{}, fmt.Errorf("seed alumni: %w", err)
		}
	}
	mentorRepo := store.Mentors()
	for i := range ds.Mentors {
		if err := mentorRepo.Upsert(ctx, &ds.Mentors[i]); err != nil {
			return Summary{}, fmt.Errorf("seed mentor: %w", err)
		}
	}
	requestRepo := store.Requests()
	for i := range ds.Requests {
		if err := requestRepo.Create(ctx, &ds.Requests[i]); err != nil {
			return Summary{}, fmt.Errorf("seed request: %w", err)
		}
	}

	summary := Summary{Alumni: len(ds.Alumni), Mentors: len(ds.Mentors), Requests: len(ds.Requests)}
	connections := store.Connections()
	for _, req := range ds.Requests {
		if rng.Intn(3) != 0 {
			continue
		}
		mentors, err := mentorRepo.ListAll(ctx)
		if err != nil {
			return summary, fmt.Errorf("seed list mentors: %w", err)
		}
		matches := service.SuggestMatches(req, mentors)
		if len(matches) == 0 {
			continue
		}
		requestID := req.ID
		start := req.CreatedAt.AddDate(0, 0, 7+rng.Intn(14))
		conn := &models.MentorshipConnection{
			MentorID:  matches[0].MentorID,
			MenteeID:  req.AlumniID,
			RequestID: &requestID,
			Status:    models.ConnectionPending,
			StartDate: dateOnly(start),
			EndDate:   dateOnly(start.AddDate(0, 0, service.DefaultConnectionDays)),
			Notes:     "Matched on: " + strings.Join(matches[0].MatchReasons, ", "),
		}
		if err := connections.Create(ctx, conn); err != nil {
			logger.Debug("seed connection skipped", zap.String("request_id", req.ID), zap.Error(err))
			continue
		}
		summary.Connections++
		for _, next := range seededPath(rng) {
			if _, err := connections.Update(ctx, conn.ID, func(c *models.MentorshipConnection) error {
				c.Status = next
				return nil
			}); err != nil {
				return summary, fmt.Errorf("seed connection status: %w", err)
			}
		}
	}

	logger.Info("mock data seeded",
		zap.Int64("seed", opts.Seed),
		zap.Int("alumni", summary.Alumni),
		zap.Int("mentors", summary.Mentors),
		zap.Int("requests", summary.Requests),
		zap.Int("connections", summary.Connections),
	)
	return summary, nil
}

// seededPath walks a connection through legal transitions from pending.
func seededPath(rng *rand.Rand) []models.ConnectionStatus {
	switch n := rng.Intn(10); {
	case n < 3:
		return nil
	case n < 8:
		return []models.ConnectionStatus{models.ConnectionActive}
	default:
		return []models.ConnectionStatus{models.ConnectionActive, models.ConnectionCompleted}
	}
}

func pickAvailability(rng *rand.Rand) models.MentorAvailability {
	switch n := rng.Intn(10); {
	case n < 5:
		return models.AvailabilityAvailable
	case n < 8:
		return models.AvailabilityLimited
	default:
		return models.AvailabilityUnavailable
	}
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}

func sample(rng *rand.Rand, values []string, n int) []string {
	if n > len(values) {
		n = len(values)
	}
	out := make([]string, 0, n)
	for _, idx := range rng.Perm(len(values))[:n] {
		out = append(out, values[idx])
	}
	return out
}

func appendUnique(base []string, extra ...string) []string {
	for _, v := range extra {
		found := false
		for _, b := range base {
			if b == v {
				found = true
				break
			}
		}
		if !found {
			base = append(base, v)
		}
	}
	return base
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
