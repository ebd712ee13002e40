package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/puppettale/backend/internal/model/chat"
	"github.com/puppettale/backend/internal/model/child"
	"github.com/puppettale/backend/internal/model/story"
)

var _ Store = (*MySQLStore)(nil)

func newMockStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = sqlDB.Close()
	})
	return &MySQLStore{db: db}, mock
}

var (
	storyColumns = []string{"id", "child_id", "session_id", "title", "thumbnail_url", "created_at", "deleted_at"}
	pageColumns  = []string{"id", "story_id", "page_number", "text", "image_url"}
	childColumns = []string{"id", "name", "birth_date", "hospitalized_since", "profile_image_url", "puppet_name", "puppet_mode"}
)

func TestMySQLAppendMessageStoresEmotion(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	msg := chat.NewMessage("s1", chat.SpeakerAI, "hello", at)
	msg.Emotion = "happy"

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `chat_messages`").
		WithArgs(sqlmock.AnyArg(), "s1", "", "AI", "hello", at, "2024-05-01", "happy").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	saved, err := store.AppendMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "happy", saved.Emotion)
}

func TestMySQLListMessagesOrdersByTimestamp(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "session_id", "child_id", "speaker", "text", "timestamp", "log_date", "emotion"}).
		AddRow("m1", "s1", "c1", "USER", "hi", at, "2024-05-01", "").
		AddRow("m2", "s1", "c1", "AI", "hello!", at.Add(time.Second), "2024-05-01", "excited")
	mock.ExpectQuery("SELECT \\* FROM `chat_messages` WHERE session_id = \\? ORDER BY timestamp ASC").
		WithArgs("s1").
		WillReturnRows(rows)

	msgs, err := store.ListMessages(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.SpeakerUser, msgs[0].Speaker)
	assert.Equal(t, chat.SpeakerAI, msgs[1].Speaker)
	assert.Equal(t, "excited", msgs[1].Emotion)
	assert.Equal(t, "c1", msgs[1].ChildID)
}

func TestMySQLSaveStoryWritesPagesInOneTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `fairy_tales`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `fairy_tale_pages`").WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	rec, err := store.SaveStory(context.Background(), story.Record{
		ChildID: "c1",
		Title:   "2024-05-02",
		Pages: []story.Page{
			{Number: 1, Text: "One.", ImageURL: "https://images.example.com/1.png"},
			{Number: 2, Text: "Two.", ImageURL: "https://images.example.com/2.png"},
		},
		CreatedAt: at,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	require.Len(t, rec.Pages, 2)
	assert.Equal(t, 2, rec.Pages[1].Number)
}

func TestMySQLSaveStoryRollsBackOnPageFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `fairy_tales`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `fairy_tale_pages`").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := store.SaveStory(context.Background(), story.Record{
		ChildID: "c1",
		Pages:   []story.Page{{Number: 1, Text: "One."}},
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestMySQLListStoriesHidesDeletedAndPreloadsOrderedPages(t *testing.T) {
	store, mock := newMockStore(t)
	newer := time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC)
	older := newer.Add(-24 * time.Hour)

	mock.ExpectQuery("SELECT \\* FROM `fairy_tales` WHERE child_id = \\? AND `fairy_tales`.`deleted_at` IS NULL ORDER BY created_at DESC").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(storyColumns).
			AddRow("st2", "c1", "s2", "new", "https://images.example.com/b2.png", newer, nil).
			AddRow("st1", "c1", "s1", "old", "https://images.example.com/a2.png", older, nil))
	mock.ExpectQuery("SELECT \\* FROM `fairy_tale_pages` WHERE `fairy_tale_pages`.`story_id` IN \\(\\?,\\?\\) ORDER BY page_number ASC").
		WithArgs("st2", "st1").
		WillReturnRows(sqlmock.NewRows(pageColumns).
			AddRow(1, "st1", 1, "a1", "https://images.example.com/a1.png").
			AddRow(3, "st2", 1, "b1", "https://images.example.com/b1.png").
			AddRow(2, "st1", 2, "a2", "https://images.example.com/a2.png").
			AddRow(4, "st2", 2, "b2", "https://images.example.com/b2.png"))

	list, err := store.ListStories(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "st2", list[0].ID)
	require.Len(t, list[0].Pages, 2)
	assert.Equal(t, []int{1, 2}, []int{list[0].Pages[0].Number, list[0].Pages[1].Number})
	assert.Equal(t, "b2", list[0].Pages[1].Text)
	require.Len(t, list[1].Pages, 2)
	assert.Equal(t, "a1", list[1].Pages[0].Text)
}

func TestMySQLGetStoryScopesToChild(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT \\* FROM `fairy_tales` WHERE \\(id = \\? AND child_id = \\?\\) AND `fairy_tales`.`deleted_at` IS NULL").
		WithArgs("st1", "c2", 1).
		WillReturnRows(sqlmock.NewRows(storyColumns))

	_, err := store.GetStory(context.Background(), "c2", "st1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMySQLDeleteStoryIsSoft(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `fairy_tales` SET `deleted_at`=\\? WHERE \\(id = \\? AND child_id = \\?\\) AND `fairy_tales`.`deleted_at` IS NULL").
		WithArgs(sqlmock.AnyArg(), "st1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.DeleteStory(context.Background(), "c1", "st1"))
}

func TestMySQLDeleteMissingStoryIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `fairy_tales` SET `deleted_at`=\\?").
		WithArgs(sqlmock.AnyArg(), "st1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	assert.ErrorIs(t, store.DeleteStory(context.Background(), "c1", "st1"), ErrNotFound)
}

func TestMySQLCountStoriesSinceSkipsDeleted(t *testing.T) {
	store, mock := newMockStore(t)
	since := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `fairy_tales` WHERE \\(child_id = \\? AND created_at >= \\?\\) AND `fairy_tales`.`deleted_at` IS NULL").
		WithArgs("c1", since).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(2))

	count, err := store.CountStoriesSince(context.Background(), "c1", since)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMySQLUpdatePuppetReadsRowBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `children` SET `puppet_name`=\\? WHERE id = \\?").
		WithArgs("Bori", "c1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT \\* FROM `children` WHERE id = \\?").
		WithArgs("c1", 1).
		WillReturnRows(sqlmock.NewRows(childColumns).AddRow("c1", "Mina", nil, nil, "", "Bori", "ENERGETIC"))

	c, err := store.UpdatePuppetName(context.Background(), "c1", "Bori")
	require.NoError(t, err)
	require.NotNil(t, c.Puppet)
	assert.Equal(t, "Bori", c.Puppet.Name)
	assert.Equal(t, child.ModeEnergetic, c.Puppet.Mode)
}

func TestMySQLUpdatePuppetOnMissingChild(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `children` SET `puppet_mode`=\\? WHERE id = \\?").
		WithArgs("ENERGETIC", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT \\* FROM `children` WHERE id = \\?").
		WithArgs("ghost", 1).
		WillReturnRows(sqlmock.NewRows(childColumns))

	_, err := store.UpdatePuppetMode(context.Background(), "ghost", child.ModeEnergetic)
	assert.ErrorIs(t, err, ErrNotFound)
}
