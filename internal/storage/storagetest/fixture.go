// Package storagetest builds job board databases for tests.
package storagetest

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// Schema is the job board schema after all migrations.
const Schema = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	name TEXT NOT NULL,
	phone TEXT,
	status TEXT DEFAULT 'active',
	created_at TEXT DEFAULT (datetime('now')),
	updated_at TEXT DEFAULT (datetime('now'))
);
CREATE TABLE profiles_jobseeker (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER UNIQUE NOT NULL,
	phone TEXT,
	headline TEXT,
	location TEXT,
	country TEXT,
	bio TEXT,
	skills TEXT,
	work_history TEXT,
	education TEXT,
	cv_url TEXT,
	desired_job_type TEXT,
	desired_salary_min REAL,
	desired_salary_max REAL,
	availability TEXT,
	profile_complete INTEGER DEFAULT 0
);
CREATE TABLE profiles_employer (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER UNIQUE NOT NULL,
	company_name TEXT,
	industry TEXT,
	location TEXT,
	country TEXT,
	website TEXT,
	logo_url TEXT,
	description TEXT,
	verified INTEGER DEFAULT 0
);
CREATE TABLE jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	employer_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	requirements TEXT,
	skills TEXT,
	location TEXT,
	country TEXT,
	job_type TEXT,
	experience_level TEXT,
	industry TEXT,
	salary_min REAL,
	salary_max REAL,
	salary_currency TEXT DEFAULT 'PGK',
	status TEXT DEFAULT 'active',
	company_display_name TEXT,
	logo_url TEXT,
	views_count INTEGER DEFAULT 0,
	created_at TEXT DEFAULT (datetime('now')),
	updated_at TEXT DEFAULT (datetime('now'))
);
`

// Job is a row to seed into the jobs table.
type Job struct {
	ID              int64
	EmployerID      int64
	Title           string
	Description     string
	Skills          []string
	Requirements    []string
	Location        string
	Country         string
	ExperienceLevel string
	Industry        string
	SalaryMin       float64
	SalaryMax       float64
	Status          string
	CompanyDisplay  string
}

// Seeker is a user plus job seeker profile to seed.
type Seeker struct {
	ID          int64
	Name        string
	Status      string
	Headline    string
	Location    string
	Country     string
	Bio         string
	Skills      []string
	WorkHistory string
	CVURL       string
	SalaryMin   float64
}

// DB is an open, writable fixture database.
type DB struct {
	*sql.DB
	Path string
	t    testing.TB
}

// New creates a job board database with Schema in a temp dir.
func New(t testing.TB) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobboard.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		t.Fatalf("create fixture schema: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &DB{DB: db, Path: path, t: t}
}

// Employer inserts an employer user with an employer profile.
func (d *DB) Employer(id int64, name, company string) {
	d.t.Helper()
	d.exec(`INSERT INTO users (id, email, role, name) VALUES (?, ?, 'employer', ?)`,
		id, name+"@example.com", name)
	d.exec(`INSERT INTO profiles_employer (user_id, company_name, logo_url) VALUES (?, ?, ?)`,
		id, company, "/uploads/logos/"+company+".png")
}

// Job inserts a job. An empty status means active.
func (d *DB) Job(j Job) {
	d.t.Helper()
	if j.Status == "" {
		j.Status = "active"
	}
	var display any
	if j.CompanyDisplay != "" {
		display = j.CompanyDisplay
	}
	d.exec(`INSERT INTO jobs (id, employer_id, title, description, requirements, skills, location, country,
		experience_level, industry, salary_min, salary_max, status, company_display_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.EmployerID, j.Title, j.Description, jsonList(j.Requirements), jsonList(j.Skills),
		j.Location, j.Country, j.ExperienceLevel, j.Industry, nullFloat(j.SalaryMin), nullFloat(j.SalaryMax),
		j.Status, display)
}

// Seeker inserts a job seeker user and profile. An empty status means active.
func (d *DB) Seeker(s Seeker) {
	d.t.Helper()
	if s.Status == "" {
		s.Status = "active"
	}
	d.exec(`INSERT INTO users (id, email, role, name, status) VALUES (?, ?, 'jobseeker', ?, ?)`,
		s.ID, s.Name+"@example.com", s.Name, s.Status)
	d.exec(`INSERT INTO profiles_jobseeker (user_id, headline, location, country, bio, skills, work_history,
		cv_url, desired_salary_min) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Headline, s.Location, s.Country, s.Bio, jsonList(s.Skills), s.WorkHistory, s.CVURL,
		nullFloat(s.SalaryMin))
}

func (d *DB) exec(query string, args ...any) {
	d.t.Helper()
	if _, err := d.Exec(query, args...); err != nil {
		d.t.Fatalf("fixture exec: %v", err)
	}
}

func jsonList(items []string) any {
	if items == nil {
		return nil
	}
	b, _ := json.Marshal(items)
	return string(b)
}

func nullFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}
