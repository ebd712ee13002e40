package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/puppettale/backend/internal/model/chat"
	"github.com/puppettale/backend/internal/model/child"
	"github.com/puppettale/backend/internal/model/story"
)

type messageRow struct {
	ID        string    `gorm:"primaryKey;size:36"`
	SessionID string    `gorm:"index:idx_session_time;size:128"`
	ChildID   string    `gorm:"size:64"`
	Speaker   string    `gorm:"size:8"`
	Text      string    `gorm:"type:text"`
	Timestamp time.Time `gorm:"index:idx_session_time"`
	LogDate   string    `gorm:"size:10;index"`
	Emotion   string    `gorm:"size:32"`
}

func (messageRow) TableName() string { return "chat_messages" }

type storyRow struct {
	ID           string         `gorm:"primaryKey;size:36"`
	ChildID      string         `gorm:"index;size:64"`
	SessionID    string         `gorm:"size:128"`
	Title        string         `gorm:"size:255"`
	ThumbnailURL string         `gorm:"size:1024"`
	Pages        []pageRow      `gorm:"foreignKey:StoryID"`
	CreatedAt    time.Time      `gorm:"index"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (storyRow) TableName() string { return "fairy_tales" }

type pageRow struct {
	ID         uint   `gorm:"primaryKey"`
	StoryID    string `gorm:"index;size:36"`
	PageNumber int
	Text       string `gorm:"type:text"`
	ImageURL   string `gorm:"size:1024"`
}

func (pageRow) TableName() string { return "fairy_tale_pages" }

type childRow struct {
	ID                string `gorm:"primaryKey;size:64"`
	Name              string `gorm:"size:64"`
	BirthDate         *time.Time
	HospitalizedSince *time.Time
	ProfileImageURL   string `gorm:"size:1024"`
	PuppetName        string `gorm:"size:64"`
	PuppetMode        string `gorm:"size:16"`
}

func (childRow) TableName() string { return "children" }

// MySQLConfig tunes the connection pool.
type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Verbose         bool
}

// MySQLStore implements Store on top of gorm.
type MySQLStore struct {
	db *gorm.DB
}

// NewMySQLStore opens the database and migrates the schema.
func NewMySQLStore(cfg MySQLConfig) (*MySQLStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("mysql dsn is required")
	}

	logLevel := logger.Warn
	if cfg.Verbose {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return NewMySQLStoreFromDB(db)
}

// NewMySQLStoreFromDB wraps an open gorm handle and migrates the schema.
func NewMySQLStoreFromDB(db *gorm.DB) (*MySQLStore, error) {
	if err := db.AutoMigrate(&messageRow{}, &storyRow{}, &pageRow{}, &childRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

// Close releases the connection pool.
func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AppendMessage implements MessageStore.
func (s *MySQLStore) AppendMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	msg = stampMessage(msg)
	row := messageRow{
		ID:        msg.ID,
		SessionID: msg.SessionID,
		ChildID:   msg.ChildID,
		Speaker:   string(msg.Speaker),
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
		LogDate:   msg.LogDate,
		Emotion:   msg.Emotion,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return chat.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// ListMessages implements MessageStore.
func (s *MySQLStore) ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	var rows []messageRow
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, chat.Message{
			ID:        row.ID,
			SessionID: row.SessionID,
			ChildID:   row.ChildID,
			Speaker:   chat.Speaker(row.Speaker),
			Text:      row.Text,
			Timestamp: row.Timestamp,
			LogDate:   row.LogDate,
			Emotion:   row.Emotion,
		})
	}
	return out, nil
}

// SaveStory implements StoryStore. The story and its pages are written in one transaction.
func (s *MySQLStore) SaveStory(ctx context.Context, rec story.Record) (story.Record, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	row := toStoryRow(rec)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		return story.Record{}, fmt.Errorf("insert story: %w", err)
	}
	return fromStoryRow(row), nil
}

// ListStories implements StoryStore.
func (s *MySQLStore) ListStories(ctx context.Context, childID string) ([]story.Record, error) {
	var rows []storyRow
	err := s.db.WithContext(ctx).
		Preload("Pages", func(db *gorm.DB) *gorm.DB { return db.Order("page_number ASC") }).
		Where("child_id = ?", childID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}

	out := make([]story.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromStoryRow(row))
	}
	return out, nil
}

// GetStory implements StoryStore.
func (s *MySQLStore) GetStory(ctx context.Context, childID, storyID string) (story.Record, error) {
	row, err := s.findStory(s.db.WithContext(ctx), childID, storyID)
	if err != nil {
		return story.Record{}, err
	}
	return fromStoryRow(row), nil
}

// UpdateStoryTitle implements StoryStore.
func (s *MySQLStore) UpdateStoryTitle(ctx context.Context, childID, storyID, title string) (story.Record, error) {
	var rec story.Record
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.findStory(tx, childID, storyID)
		if err != nil {
			return err
		}
		if err := tx.Model(&storyRow{}).Where("id = ?", row.ID).Update("title", title).Error; err != nil {
			return fmt.Errorf("update title: %w", err)
		}
		row.Title = title
		rec = fromStoryRow(row)
		return nil
	})
	return rec, err
}

// DeleteStory implements StoryStore. gorm's DeletedAt makes this a soft delete.
func (s *MySQLStore) DeleteStory(ctx context.Context, childID, storyID string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND child_id = ?", storyID, childID).
		Delete(&storyRow{})
	if res.Error != nil {
		return fmt.Errorf("delete story: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountStoriesSince implements StoryStore.
func (s *MySQLStore) CountStoriesSince(ctx context.Context, childID string, since time.Time) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&storyRow{}).
		Where("child_id = ? AND created_at >= ?", childID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count stories: %w", err)
	}
	return int(count), nil
}

// GetChild implements ChildStore.
func (s *MySQLStore) GetChild(ctx context.Context, childID string) (child.Child, error) {
	var row childRow
	err := s.db.WithContext(ctx).Where("id = ?", childID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return child.Child{}, ErrNotFound
	}
	if err != nil {
		return child.Child{}, fmt.Errorf("load child: %w", err)
	}
	return fromChildRow(row), nil
}

// SaveChild implements ChildStore.
func (s *MySQLStore) SaveChild(ctx context.Context, c child.Child) (child.Child, error) {
	row := toChildRow(c)
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return child.Child{}, fmt.Errorf("save child: %w", err)
	}
	return fromChildRow(row), nil
}

// UpdatePuppetName implements ChildStore.
func (s *MySQLStore) UpdatePuppetName(ctx context.Context, childID, name string) (child.Child, error) {
	return s.updateChild(ctx, childID, "puppet_name", name)
}

// UpdatePuppetMode implements ChildStore.
func (s *MySQLStore) UpdatePuppetMode(ctx context.Context, childID string, mode child.PuppetMode) (child.Child, error) {
	return s.updateChild(ctx, childID, "puppet_mode", string(mode))
}

func (s *MySQLStore) updateChild(ctx context.Context, childID, column, value string) (child.Child, error) {
	res := s.db.WithContext(ctx).Model(&childRow{}).Where("id = ?", childID).Update(column, value)
	if res.Error != nil {
		return child.Child{}, fmt.Errorf("update child %s: %w", column, res.Error)
	}
	// MySQL reports zero affected rows for unchanged values, so existence is
	// confirmed by reading the row back.
	return s.GetChild(ctx, childID)
}

func (s *MySQLStore) findStory(db *gorm.DB, childID, storyID string) (storyRow, error) {
	var row storyRow
	err := db.Preload("Pages", func(db *gorm.DB) *gorm.DB { return db.Order("page_number ASC") }).
		Where("id = ? AND child_id = ?", storyID, childID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storyRow{}, ErrNotFound
	}
	if err != nil {
		return storyRow{}, fmt.Errorf("load story: %w", err)
	}
	return row, nil
}

func toStoryRow(rec story.Record) storyRow {
	if rec.ID == "" {
		rec.ID = newID()
	}
	pages := make([]pageRow, 0, len(rec.Pages))
	for _, p := range rec.Pages {
		pages = append(pages, pageRow{StoryID: rec.ID, PageNumber: p.Number, Text: p.Text, ImageURL: p.ImageURL})
	}
	return storyRow{
		ID:           rec.ID,
		ChildID:      rec.ChildID,
		SessionID:    rec.SessionID,
		Title:        rec.Title,
		ThumbnailURL: rec.ThumbnailURL,
		Pages:        pages,
		CreatedAt:    rec.CreatedAt,
	}
}

func fromStoryRow(row storyRow) story.Record {
	pages := make([]story.Page, 0, len(row.Pages))
	for _, p := range row.Pages {
		pages = append(pages, story.Page{Number: p.PageNumber, Text: p.Text, ImageURL: p.ImageURL})
	}
	return story.Record{
		ID:           row.ID,
		ChildID:      row.ChildID,
		SessionID:    row.SessionID,
		Title:        row.Title,
		ThumbnailURL: row.ThumbnailURL,
		Pages:        pages,
		CreatedAt:    row.CreatedAt,
	}
}

func toChildRow(c child.Child) childRow {
	if c.ID == "" {
		c.ID = newID()
	}
	row := childRow{
		ID:                c.ID,
		Name:              c.Name,
		BirthDate:         c.BirthDate,
		HospitalizedSince: c.HospitalizedSince,
		ProfileImageURL:   c.ProfileImageURL,
	}
	if c.Puppet != nil {
		row.PuppetName = c.Puppet.Name
		row.PuppetMode = string(c.Puppet.Mode)
	}
	return row
}

func fromChildRow(row childRow) child.Child {
	c := child.Child{
		ID:                row.ID,
		Name:              row.Name,
		BirthDate:         row.BirthDate,
		HospitalizedSince: row.HospitalizedSince,
		ProfileImageURL:   row.ProfileImageURL,
	}
	if row.PuppetName != "" || row.PuppetMode != "" {
		mode := child.PuppetMode(row.PuppetMode)
		if mode == "" {
			mode = child.ModeAffectionate
		}
		c.Puppet = &child.Puppet{Name: row.PuppetName, Mode: mode}
	}
	return c
}
