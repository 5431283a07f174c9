package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/wantokmatch/internal/errs"
	"github.com/hyperjump/wantokmatch/internal/models"
)

// Columns added by later migrations of the job board. Older databases lack
// them and read as NULL.
var optionalColumns = map[string][]string{
	"users":              {"status", "phone"},
	"profiles_jobseeker": {"headline"},
	"jobs":               {"skills", "company_display_name", "logo_url"},
}

// SQLiteSource implements Source over the job board SQLite file.
type SQLiteSource struct {
	db     *sql.DB
	logger *zap.Logger

	jobSelect     string
	profileSelect string
	hasUserStatus bool
}

// Option configures a SQLiteSource.
type Option func(*SQLiteSource)

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *SQLiteSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// OpenSQLite opens the database at path read only and inspects which optional
// columns it has.
func OpenSQLite(path string, opts ...Option) (*SQLiteSource, error) {
	dsn := "file:" + (&url.URL{Path: path}).EscapedPath() + "?mode=ro&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open job board database: %w", err)
	}
	s := &SQLiteSource{db: db, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	cols, err := s.introspect(context.Background())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to inspect job board schema: %w", err)
	}
	s.buildQueries(cols)
	return s, nil
}

func (s *SQLiteSource) introspect(ctx context.Context) (map[string]bool, error) {
	present := make(map[string]bool)
	for table := range optionalColumns {
		rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return nil, err
			}
			present[table+"."+name] = true
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
	}
	if !present["jobs.id"] || !present["users.id"] || !present["profiles_jobseeker.user_id"] {
		return nil, errors.New("jobs, users or profiles_jobseeker table missing")
	}
	for table, names := range optionalColumns {
		for _, n := range names {
			if !present[table+"."+n] {
				s.logger.Debug("optional column missing", zap.String("column", table+"."+n))
			}
		}
	}
	return present, nil
}

func (s *SQLiteSource) buildQueries(cols map[string]bool) {
	col := func(table, alias, name string) string {
		if cols[table+"."+name] {
			return alias + "." + name
		}
		return "NULL"
	}
	s.hasUserStatus = cols["users.status"]

	s.jobSelect = fmt.Sprintf(`SELECT j.id, j.employer_id, j.title, j.description, j.requirements, %s,
		j.location, j.country, j.job_type, j.experience_level, j.industry,
		j.salary_min, j.salary_max, j.salary_currency, j.status, j.created_at,
		u.name, COALESCE(%s, pe.company_name), COALESCE(%s, pe.logo_url)
		FROM jobs j
		JOIN users u ON j.employer_id = u.id
		LEFT JOIN profiles_employer pe ON u.id = pe.user_id`,
		col("jobs", "j", "skills"), col("jobs", "j", "company_display_name"), col("jobs", "j", "logo_url"))

	s.profileSelect = fmt.Sprintf(`SELECT u.id, u.name, u.email, %s, %s,
		%s, p.location, p.country, p.skills, p.bio, p.work_history, p.education,
		p.desired_job_type, p.desired_salary_min, p.desired_salary_max, p.availability, p.cv_url
		FROM users u
		JOIN profiles_jobseeker p ON p.user_id = u.id`,
		col("users", "u", "phone"), col("users", "u", "status"), col("profiles_jobseeker", "p", "headline"))
}

// GetJob implements Source.
func (s *SQLiteSource) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	jobs, err := s.queryJobs(ctx, s.jobSelect+" WHERE j.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("job %d: %w", id, errs.ErrEntityNotFound)
	}
	return jobs[0], nil
}

// GetJobs implements Source.
func (s *SQLiteSource) GetJobs(ctx context.Context, ids []int64) ([]*models.Job, error) {
	if len(ids) == 0 {
		return []*models.Job{}, nil
	}
	in, args := inClause(ids)
	return s.queryJobs(ctx, s.jobSelect+" WHERE j.id IN ("+in+") AND j.status = 'active'", args...)
}

// ListActiveJobs implements Source.
func (s *SQLiteSource) ListActiveJobs(ctx context.Context) ([]*models.Job, error) {
	return s.queryJobs(ctx, s.jobSelect+" WHERE j.status = 'active' ORDER BY j.id")
}

// GetProfile implements Source.
func (s *SQLiteSource) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	profiles, err := s.queryProfiles(ctx, s.profileSelect+" WHERE u.id = ?", userID)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("profile %d: %w", userID, errs.ErrEntityNotFound)
	}
	return profiles[0], nil
}

// GetCandidates implements Source.
func (s *SQLiteSource) GetCandidates(ctx context.Context, userIDs []int64) ([]*models.Profile, error) {
	if len(userIDs) == 0 {
		return []*models.Profile{}, nil
	}
	in, args := inClause(userIDs)
	return s.queryProfiles(ctx, s.profileSelect+" WHERE u.id IN ("+in+")"+s.activeUser(), args...)
}

// ListProfiles implements Source. Only profiles of active users are listed.
func (s *SQLiteSource) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	where := " WHERE 1 = 1" + s.activeUser() + " ORDER BY u.id"
	return s.queryProfiles(ctx, s.profileSelect+where)
}

// Close closes the database handle.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func (s *SQLiteSource) activeUser() string {
	if !s.hasUserStatus {
		return ""
	}
	return " AND COALESCE(u.status, 'active') = 'active'"
}

func (s *SQLiteSource) queryJobs(ctx context.Context, query string, args ...any) ([]*models.Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*models.Job{}
	for rows.Next() {
		var (
			j                                          models.Job
			title, desc, reqs, skills, loc, country    sql.NullString
			jobType, level, industry, currency, status sql.NullString
			created, employer, company, logo           sql.NullString
			salaryMin, salaryMax                       sql.NullFloat64
			employerID                                 sql.NullInt64
		)
		if err := rows.Scan(&j.ID, &employerID, &title, &desc, &reqs, &skills,
			&loc, &country, &jobType, &level, &industry,
			&salaryMin, &salaryMax, &currency, &status, &created,
			&employer, &company, &logo); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		j.EmployerID = employerID.Int64
		j.Title = title.String
		j.Description = desc.String
		j.Requirements = models.ParseList(reqs.String)
		j.Skills = models.ParseList(skills.String)
		j.Location = loc.String
		j.Country = country.String
		j.JobType = jobType.String
		j.ExperienceLevel = level.String
		j.Industry = industry.String
		j.SalaryMin = salaryMin.Float64
		j.SalaryMax = salaryMax.Float64
		j.SalaryCurrency = currency.String
		j.Status = status.String
		j.CreatedAt = parseTime(created.String)
		j.EmployerName = employer.String
		j.CompanyName = company.String
		j.LogoURL = logo.String
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (s *SQLiteSource) queryProfiles(ctx context.Context, query string, args ...any) ([]*models.Profile, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	profiles := []*models.Profile{}
	for rows.Next() {
		var (
			p                                    models.Profile
			name, email, phone, status, headline sql.NullString
			loc, country, skills, bio, work, edu sql.NullString
			jobType, availability, cv            sql.NullString
			salaryMin, salaryMax                 sql.NullFloat64
		)
		if err := rows.Scan(&p.UserID, &name, &email, &phone, &status,
			&headline, &loc, &country, &skills, &bio, &work, &edu,
			&jobType, &salaryMin, &salaryMax, &availability, &cv); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		p.Name = name.String
		p.Email = email.String
		p.Phone = phone.String
		p.Status = status.String
		p.Headline = headline.String
		p.Location = loc.String
		p.Country = country.String
		p.Skills = models.ParseList(skills.String)
		p.Bio = bio.String
		p.WorkHistory = models.ParseWorkHistory(work.String)
		p.Education = models.ParseList(edu.String)
		p.DesiredJobType = jobType.String
		p.DesiredSalaryMin = salaryMin.Float64
		p.DesiredSalaryMax = salaryMax.Float64
		p.Availability = availability.String
		p.CVURL = cv.String
		profiles = append(profiles, &p)
	}
	return profiles, rows.Err()
}

func inClause(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
