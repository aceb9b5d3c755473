package lead

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// leadModel is the persisted shape of a Lead.
type leadModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Name         string    `gorm:"size:100;not null"`
	Email        string    `gorm:"size:254;not null;uniqueIndex:idx_leads_email"`
	Phone        string    `gorm:"size:32;not null"`
	BusinessType string    `gorm:"size:32;not null;index"`
	Message      string    `gorm:"type:text"`
	Status       string    `gorm:"size:16;not null;index"`
	Notes        string    `gorm:"type:text"`
	Source       string    `gorm:"size:64;not null"`
	IPAddress    string    `gorm:"size:64"`
	UserAgent    string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (leadModel) TableName() string {
	return "leads"
}

func toModel(l *Lead) *leadModel {
	return &leadModel{
		ID:           l.ID,
		Name:         l.Name,
		Email:        l.Email,
		Phone:        l.Phone,
		BusinessType: string(l.BusinessType),
		Message:      l.Message,
		Status:       string(l.Status),
		Notes:        l.Notes,
		Source:       l.Source,
		IPAddress:    l.IPAddress,
		UserAgent:    l.UserAgent,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func (m *leadModel) toEntity() *Lead {
	return &Lead{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		Phone:        m.Phone,
		BusinessType: BusinessType(m.BusinessType),
		Message:      m.Message,
		Status:       Status(m.Status),
		Notes:        m.Notes,
		Source:       m.Source,
		IPAddress:    m.IPAddress,
		UserAgent:    m.UserAgent,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

// Migrate creates or updates the leads table and its indexes.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&leadModel{})
}

// Repository handles lead data access
type Repository struct {
	db *gorm.DB
}

// NewRepository creates lead repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new lead and fills in its ID. A unique index violation on
// email is reported as ErrDuplicateEmail.
func (r *Repository) Create(ctx context.Context, lead *Lead) error {
	m := toModel(lead)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	lead.ID = m.ID
	lead.CreatedAt = m.CreatedAt.UTC()
	lead.UpdatedAt = m.UpdatedAt.UTC()
	return nil
}

// GetByID retrieves lead by ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Lead, error) {
	var m leadModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return m.toEntity(), nil
}

// GetByEmail retrieves lead by normalized email. Returns nil, nil when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Lead, error) {
	var models []leadModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).Limit(1).Find(&models).Error; err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	return models[0].toEntity(), nil
}

// Find returns one page of leads matching q and the total number of matches.
func (r *Repository) Find(ctx context.Context, q Query) ([]Lead, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if q.Status != "" {
			db = db.Where("status = ?", string(q.Status))
		}
		if q.BusinessType != "" {
			db = db.Where("business_type = ?", string(q.BusinessType))
		}
		if q.Search != "" {
			p := likePattern(q.Search)
			db = db.Where(
				`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR LOWER(phone) LIKE ? ESCAPE '\')`,
				p, p, p,
			)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&leadModel{}).
		Scopes(filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column := q.SortColumn
	if column == "" {
		column = "created_at"
	}

	tx := r.db.WithContext(ctx).
		Model(&leadModel{}).
		Scopes(filter).
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: q.Descending}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: q.Descending})
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var models []leadModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, 0, err
	}

	leads := make([]Lead, 0, len(models))
	for i := range models {
		leads = append(leads, *models[i].toEntity())
	}
	return leads, total, nil
}

// UpdateStatus sets status (and notes when non-nil) and returns the updated lead.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status Status, notes *string, at time.Time) (*Lead, error) {
	updates := map[string]interface{}{
		"status":     string(status),
		"updated_at": at,
	}
	if notes != nil {
		updates["notes"] = *notes
	}

	res := r.db.WithContext(ctx).
		Model(&leadModel{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrLeadNotFound
	}

	return r.GetByID(ctx, id)
}

// Delete removes a lead permanently
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&leadModel{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// CountByStatus returns lead counts by status
func (r *Repository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&leadModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[Status]int64, len(rows))
	for _, row := range rows {
		counts[Status(row.Status)] = row.Count
	}
	return counts, nil
}

// CreatedSince returns creation times of leads created at or after since.
func (r *Repository) CreatedSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var times []time.Time
	if err := r.db.WithContext(ctx).
		Model(&leadModel{}).
		Where("created_at >= ?", since.UTC()).
		Order("created_at").
		Pluck("created_at", &times).Error; err != nil {
		return nil, err
	}
	return times, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
