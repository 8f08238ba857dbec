package store

import (
	"errors"
	"fmt"
	"time"
	"verity/internal/models"
	"verity/internal/providers"
	"verity/internal/structures"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when a cache row does not exist. Callers decide
// whether to fall back to the ledger.
var ErrNotFound = errors.New("record not found in cache store")

// Store is the denormalized read store. The ledger stays authoritative;
// everything here is rebuilt from re-reads, so writes are idempotent upserts
// except the reputation counters, which are true atomic increments.
type Store struct {
	db     *gorm.DB
	driver string
	logger providers.Logger
}

func NewStore(conf *structures.Config, logger providers.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch conf.Store.Driver {
	case "postgres":
		dialector = postgres.Open(conf.Store.DSN)
	case "sqlite":
		dialector = sqlite.Open(conf.Store.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", conf.Store.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open cache store: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Article{},
		&models.ArticleVersion{},
		&models.UpdateProposal{},
		&models.AnalysisRecord{},
		&models.ModelPrediction{},
		&models.ValidatorRecord{},
		&models.VoteRecord{},
	); err != nil {
		return nil, fmt.Errorf("cache store migration failed: %w", err)
	}

	return &Store{db: db, driver: conf.Store.Driver, logger: logger}, nil
}

// WithTx runs fn inside a single transaction.
func (s *Store) WithTx(fn func(tx *gorm.DB) error) error {
	return s.db.Transaction(fn)
}

// forUpdate returns a row lock clause where the driver supports one.
func (s *Store) forUpdate() []clause.Expression {
	if s.driver == "postgres" {
		return []clause.Expression{clause.Locking{Strength: "UPDATE"}}
	}
	return nil
}

// UpsertArticle writes a full article row plus any version snapshots it
// carries. Applying the same state twice is a no-op: the row is overwritten
// with identical values and versions conflict on (article, index).
func (s *Store) UpsertArticle(article *models.Article) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		versions := article.Versions
		article.Versions = nil
		defer func() { article.Versions = versions }()

		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "article_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"author", "title", "content", "content_c_id", "content_hash",
				"trust_score", "status", "timestamp", "yes_votes", "no_votes",
				"version_count", "last_synced", "updated_at",
			}),
		}).Create(article).Error; err != nil {
			return err
		}

		for i := range versions {
			versions[i].ArticleRef = article.ArticleID
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "article_ref"}, {Name: "version_index"}},
				DoNothing: true,
			}).Create(&versions[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateArticleFields applies a field-level update to an existing row.
// Missing rows are ignored; a later full sync creates them.
func (s *Store) UpdateArticleFields(articleID string, fields map[string]interface{}) error {
	fields["last_synced"] = time.Now().UTC()
	return s.db.Model(&models.Article{}).
		Where("article_id = ?", articleID).
		Updates(fields).Error
}

// AppendVersion records one immutable version snapshot.
func (s *Store) AppendVersion(v *models.ArticleVersion) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "article_ref"}, {Name: "version_index"}},
		DoNothing: true,
	}).Create(v).Error
}

func (s *Store) GetArticle(articleID string) (*models.Article, error) {
	var article models.Article
	err := s.db.Preload("Versions", func(db *gorm.DB) *gorm.DB {
		return db.Order("version_index ASC")
	}).Where("article_id = ?", articleID).First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// CountArticles returns the cached article total.
func (s *Store) CountArticles() (int64, error) {
	var count int64
	err := s.db.Model(&models.Article{}).Count(&count).Error
	return count, err
}

// CountValidators returns the tracked validator total.
func (s *Store) CountValidators() (int64, error) {
	var count int64
	err := s.db.Model(&models.ValidatorRecord{}).Count(&count).Error
	return count, err
}

// HasArticle reports row existence without loading content.
func (s *Store) HasArticle(articleID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Article{}).Where("article_id = ?", articleID).Count(&count).Error
	return count > 0, err
}

// ArticleFilter narrows ListArticles.
type ArticleFilter struct {
	Status *models.ArticleStatus
	Author string
	Search string
}

// ListArticles returns articles newest first with the total row count.
func (s *Store) ListArticles(filter ArticleFilter, page, limit int) ([]models.Article, int64, error) {
	q := s.db.Model(&models.Article{})
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.Author != "" {
		q = q.Where("author = ?", filter.Author)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where("title LIKE ? OR content LIKE ?", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var articles []models.Article
	err := q.Order("timestamp DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&articles).Error
	return articles, total, err
}

// UpsertProposal writes a proposal row keyed by (article, proposal).
func (s *Store) UpsertProposal(p *models.UpdateProposal) error {
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "article_ref"}, {Name: "proposal_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"new_content_c_id", "new_content_hash", "proposer", "trust_score",
			"yes_votes", "no_votes", "status", "proposed_at", "last_synced", "updated_at",
		}),
	}).Create(p).Error
}

func (s *Store) GetProposal(articleID, proposalID string) (*models.UpdateProposal, error) {
	var p models.UpdateProposal
	err := s.db.Where("article_ref = ? AND proposal_id = ?", articleID, proposalID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertAnalysis replaces the live analysis record for an article.
func (s *Store) UpsertAnalysis(rec *models.AnalysisRecord) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.AnalysisRecord
		err := tx.Where("article_id = ?", rec.ArticleID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(rec).Error
		case err != nil:
			return err
		}

		if err := tx.Where("analysis_id = ?", existing.ID).Delete(&models.ModelPrediction{}).Error; err != nil {
			return err
		}
		rec.ID = existing.ID
		for i := range rec.Models {
			rec.Models[i].ID = 0
			rec.Models[i].AnalysisID = existing.ID
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(rec).Error
	})
}

func (s *Store) GetAnalysis(articleID string) (*models.AnalysisRecord, error) {
	var rec models.AnalysisRecord
	err := s.db.Preload("Models").Where("article_id = ?", articleID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
