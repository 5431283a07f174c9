package storage

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/hyperjump/wantokmatch/internal/errs"
	"github.com/hyperjump/wantokmatch/internal/storage/storagetest"
)

func seedBoard(t *testing.T) *SQLiteSource {
	t.Helper()
	db := storagetest.New(t)
	db.Employer(1, "Ok Tedi", "Ok Tedi Mining")
	db.Job(storagetest.Job{ID: 10, EmployerID: 1, Title: "Mine Engineer", Description: "Open pit operations",
		Skills: []string{"mining", "safety"}, Location: "Tabubil", Country: "PNG", SalaryMin: 90000})
	db.Job(storagetest.Job{ID: 11, EmployerID: 1, Title: "Driver", Description: "Haul trucks",
		CompanyDisplay: "OTML Logistics"})
	db.Job(storagetest.Job{ID: 12, EmployerID: 1, Title: "Closed role", Description: "x", Status: "closed"})
	db.Seeker(storagetest.Seeker{ID: 20, Name: "Mary", Skills: []string{"nursing"}, Location: "Lae",
		WorkHistory: `[{"title":"Nurse","company":"Angau"}]`})
	db.Seeker(storagetest.Seeker{ID: 21, Name: "John", Status: "suspended"})

	src, err := OpenSQLite(db.Path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestSQLiteSource_GetJob(t *testing.T) {
	src := seedBoard(t)
	ctx := context.Background()

	job, err := src.GetJob(ctx, 10)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Title != "Mine Engineer" || job.CompanyName != "Ok Tedi Mining" || job.EmployerName != "Ok Tedi" {
		t.Errorf("unexpected job: %+v", job)
	}
	if len(job.Skills) != 2 || job.SalaryMin != 90000 || job.SalaryCurrency != "PGK" {
		t.Errorf("columns not decoded: %+v", job)
	}
	if job.CreatedAt.IsZero() {
		t.Error("created_at not parsed")
	}

	closed, err := src.GetJob(ctx, 12)
	if err != nil {
		t.Fatalf("GetJob closed: %v", err)
	}
	if closed.Active() {
		t.Error("closed job reported active")
	}

	if _, err := src.GetJob(ctx, 999); !errors.Is(err, errs.ErrEntityNotFound) {
		t.Errorf("missing job error = %v, want ErrEntityNotFound", err)
	}
}

func TestSQLiteSource_GetJobsActiveOnly(t *testing.T) {
	src := seedBoard(t)
	jobs, err := src.GetJobs(context.Background(), []int64{10, 11, 12, 404})
	if err != nil {
		t.Fatalf("GetJobs: %v", err)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	if len(jobs) != 2 || jobs[0].ID != 10 || jobs[1].ID != 11 {
		t.Fatalf("GetJobs returned %d jobs", len(jobs))
	}
	if jobs[1].CompanyName != "OTML Logistics" {
		t.Errorf("display name should win over employer profile, got %q", jobs[1].CompanyName)
	}

	empty, err := src.GetJobs(context.Background(), nil)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("GetJobs(nil) = %v, %v", empty, err)
	}

	all, err := src.ListActiveJobs(context.Background())
	if err != nil || len(all) != 2 {
		t.Errorf("ListActiveJobs = %d jobs, err %v", len(all), err)
	}
}

func TestSQLiteSource_Profiles(t *testing.T) {
	src := seedBoard(t)
	ctx := context.Background()

	p, err := src.GetProfile(ctx, 20)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.Name != "Mary" || len(p.Skills) != 1 || len(p.WorkHistory) != 1 || p.WorkHistory[0].Company != "Angau" {
		t.Errorf("unexpected profile: %+v", p)
	}

	suspended, err := src.GetProfile(ctx, 21)
	if err != nil {
		t.Fatalf("GetProfile suspended: %v", err)
	}
	if suspended.Active() {
		t.Error("suspended user reported active")
	}

	cands, err := src.GetCandidates(ctx, []int64{20, 21})
	if err != nil {
		t.Fatalf("GetCandidates: %v", err)
	}
	if len(cands) != 1 || cands[0].UserID != 20 {
		t.Errorf("GetCandidates should skip inactive users, got %d", len(cands))
	}

	listed, err := src.ListProfiles(ctx)
	if err != nil || len(listed) != 1 {
		t.Errorf("ListProfiles = %d, err %v", len(listed), err)
	}

	if _, err := src.GetProfile(ctx, 1); !errors.Is(err, errs.ErrEntityNotFound) {
		t.Errorf("employer has no seeker profile, got %v", err)
	}
}

func TestSQLiteSource_OlderSchema(t *testing.T) {
	db := storagetest.New(t)
	for _, stmt := range []string{
		"ALTER TABLE jobs DROP COLUMN skills",
		"ALTER TABLE jobs DROP COLUMN company_display_name",
		"ALTER TABLE users DROP COLUMN status",
		"ALTER TABLE profiles_jobseeker DROP COLUMN headline",
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	if _, err := db.Exec(`INSERT INTO users (id, email, role, name) VALUES (1, 'e@x', 'employer', 'E')`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO jobs (id, employer_id, title, description) VALUES (5, 1, 'Cook', 'Kitchen')`); err != nil {
		t.Fatal(err)
	}

	src, err := OpenSQLite(db.Path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer src.Close()

	job, err := src.GetJob(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Skills != nil || job.CompanyName != "" {
		t.Errorf("missing columns should read empty: %+v", job)
	}
}

func TestOpenSQLite_MissingTables(t *testing.T) {
	db := storagetest.New(t)
	if _, err := db.Exec("DROP TABLE profiles_jobseeker"); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenSQLite(db.Path); err == nil {
		t.Error("expected error for missing table")
	}
}
