package services

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/notespace/internal/app/models"
	"github.com/yigit/notespace/internal/app/models/dto"
	"github.com/yigit/notespace/internal/app/pipeline"
	"github.com/yigit/notespace/internal/app/repositories"
	"github.com/yigit/notespace/internal/pkg/apperrors"
	"github.com/yigit/notespace/internal/pkg/auth"
	"github.com/yigit/notespace/internal/pkg/filestorage"
)

func newTestAuthService() (AuthService, *fakeTokenRepo, *auth.JWTService) {
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "notespace",
	})
	tokens := newFakeTokenRepo()
	svc := NewAuthService(newFakeUserRepo(), tokens, jwtService, auth.NewPasswordHasher(4), 6, zerolog.Nop())
	return svc, tokens, jwtService
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, jwtService := newTestAuthService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, &dto.RegisterRequest{Name: " Ada ", Email: "Ada@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "User registered successfully", reg.Message)
	assert.Equal(t, "Ada", reg.User.Name)
	assert.Equal(t, "ada@example.com", reg.User.Email)
	assert.Equal(t, "Bearer", reg.TokenType)

	claims, err := jwtService.ValidateToken(reg.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)

	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "ADA@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Login successful", login.Message)
	assert.Equal(t, reg.User.ID, login.User.ID)

	user, err := svc.CurrentUser(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, user.PasswordHash)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, &dto.RegisterRequest{Name: "", Email: "a@b.co", Password: "secret1"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = svc.Register(ctx, &dto.RegisterRequest{Name: "A", Email: "not-an-email", Password: "secret1"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = svc.Register(ctx, &dto.RegisterRequest{Name: "A", Email: "a@b.co", Password: "short"})
	assert.ErrorIs(t, err, apperrors.ErrWeakPassword)
	assert.Equal(t, "Password must be at least 6 characters", err.Error())

	_, err = svc.Register(ctx, &dto.RegisterRequest{Name: strings.Repeat("x", 101), Email: "a@b.co", Password: "secret1"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = svc.Register(ctx, &dto.RegisterRequest{Name: "A", Email: "a@b.co", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, &dto.RegisterRequest{Name: "B", Email: "A@B.CO", Password: "secret2"})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, &dto.RegisterRequest{Name: "A", Email: "a@b.co", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "a@b.co", Password: "wrong-password"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "nobody@b.co", Password: "secret1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, tokens, jwtService := newTestAuthService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, &dto.RegisterRequest{Name: "A", Email: "a@b.co", Password: "secret1"})
	require.NoError(t, err)
	claims, err := jwtService.ValidateToken(reg.AccessToken)
	require.NoError(t, err)

	revoked, err := svc.IsTokenRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, svc.Logout(ctx, claims))
	revoked, err = svc.IsTokenRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.WithinDuration(t, claims.ExpiresAt.Time, tokens.revoked[claims.ID].ExpiresAt, time.Second)

	assert.ErrorIs(t, svc.Logout(ctx, nil), apperrors.ErrTokenInvalid)
}

func TestCleanupRevokedTokens(t *testing.T) {
	svc, tokens, _ := newTestAuthService()
	tokens.revoked["old"] = &models.RevokedToken{JTI: "old", ExpiresAt: time.Now().Add(-time.Minute)}
	tokens.revoked["live"] = &models.RevokedToken{JTI: "live", ExpiresAt: time.Now().Add(time.Hour)}

	n, err := svc.CleanupRevokedTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Contains(t, tokens.revoked, "live")
}

func TestCreateTopic(t *testing.T) {
	repo := &fakeTopicRepo{}
	svc := NewTopicService(repo, zerolog.Nop())
	ctx := context.Background()

	topic, err := svc.CreateTopic(ctx, "  cs35l  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "cs35l", topic.Name)
	assert.Nil(t, topic.Deadline)

	deadline := "2025-12-01T10:00:00"
	topic, err = svc.CreateTopic(ctx, "cs35l", &deadline)
	require.NoError(t, err, "duplicate names are allowed")
	require.NotNil(t, topic.Deadline)
	assert.Equal(t, time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC), *topic.Deadline)

	_, err = svc.CreateTopic(ctx, "   ", nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptyName)

	_, err = svc.CreateTopic(ctx, strings.Repeat("n", 201), nil)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	bad := "next tuesday"
	_, err = svc.CreateTopic(ctx, "math", &bad)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	topics, err := svc.ListTopics(ctx)
	require.NoError(t, err)
	assert.Len(t, topics, 2)

	_, err = svc.GetTopic(ctx, 99)
	assert.ErrorIs(t, err, apperrors.ErrTopicNotFound)
}

type noteFixture struct {
	svc   NoteService
	notes *fakeNoteRepo
	dir   string
}

func newNoteFixture(t *testing.T, cfg UploadConfig) *noteFixture {
	t.Helper()
	dir := t.TempDir()
	store, err := filestorage.NewLocalStorage(dir)
	require.NoError(t, err)

	notes := newFakeNoteRepo()
	topics := &fakeTopicRepo{topics: []*models.Topic{{ID: 1, Name: "cs35l"}}}
	return &noteFixture{
		svc:   NewNoteService(notes, topics, store, cfg, zerolog.Nop()),
		notes: notes,
		dir:   dir,
	}
}

func (f *noteFixture) storedFiles(t *testing.T) int {
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	return len(entries)
}

func TestUploadFile(t *testing.T) {
	f := newNoteFixture(t, UploadConfig{MaxFileSize: 5})
	userID := int64(3)

	note, err := f.svc.UploadFile(context.Background(), &UploadInput{
		Filename: `C:\Users\ann\Week 1.TXT`,
		Size:     5,
		Content:  strings.NewReader("hello"),
		TopicID:  1,
		UserID:   &userID,
	})
	require.NoError(t, err, "a file of exactly the limit is accepted")
	assert.Equal(t, "Week 1.TXT", note.OriginalFilename)
	assert.Equal(t, int64(5), note.FileSize)
	assert.Equal(t, 0, note.UpvoteCount)
	assert.True(t, strings.HasPrefix(note.FileURL, models.FileURLPrefix))
	assert.True(t, strings.HasSuffix(note.FileURL, ".txt"))

	obj, err := f.svc.OpenFile(context.Background(), note.StorageName())
	require.NoError(t, err)
	require.NoError(t, obj.Body.Close())
	assert.Equal(t, int64(5), obj.Size)
}

func TestUploadFileRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("empty filename", func(t *testing.T) {
		f := newNoteFixture(t, UploadConfig{MaxFileSize: 10})
		_, err := f.svc.UploadFile(ctx, &UploadInput{Filename: " / ", Content: strings.NewReader("x"), TopicID: 1})
		assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	})

	t.Run("unknown topic", func(t *testing.T) {
		f := newNoteFixture(t, UploadConfig{MaxFileSize: 10})
		_, err := f.svc.UploadFile(ctx, &UploadInput{Filename: "a.txt", Content: strings.NewReader("x"), TopicID: 42})
		assert.ErrorIs(t, err, apperrors.ErrTopicNotFound)
	})

	t.Run("declared size too large", func(t *testing.T) {
		f := newNoteFixture(t, UploadConfig{MaxFileSize: 4})
		_, err := f.svc.UploadFile(ctx, &UploadInput{Filename: "a.txt", Size: 5, Content: strings.NewReader("hello"), TopicID: 1})
		assert.ErrorIs(t, err, apperrors.ErrFileTooLarge)
		assert.Zero(t, f.storedFiles(t))
	})

	t.Run("stream larger than declared", func(t *testing.T) {
		f := newNoteFixture(t, UploadConfig{MaxFileSize: 4})
		_, err := f.svc.UploadFile(ctx, &UploadInput{Filename: "a.txt", Size: 1, Content: strings.NewReader("hello world"), TopicID: 1})
		assert.ErrorIs(t, err, apperrors.ErrFileTooLarge)
		assert.Zero(t, f.storedFiles(t), "oversized stream is removed")
	})

	t.Run("extension not allowed", func(t *testing.T) {
		f := newNoteFixture(t, UploadConfig{MaxFileSize: 10, AllowedExtensions: []string{"pdf", ".TXT"}})
		_, err := f.svc.UploadFile(ctx, &UploadInput{Filename: "a.exe", Content: strings.NewReader("x"), TopicID: 1})
		assert.ErrorIs(t, err, apperrors.ErrFileTypeNotAllowed)

		_, err = f.svc.UploadFile(ctx, &UploadInput{Filename: "a.txt", Size: 1, Content: strings.NewReader("x"), TopicID: 1})
		assert.NoError(t, err)
	})

	t.Run("record insert fails", func(t *testing.T) {
		f := newNoteFixture(t, UploadConfig{MaxFileSize: 10})
		f.notes.createErr = apperrors.ErrTopicNotFound
		_, err := f.svc.UploadFile(ctx, &UploadInput{Filename: "a.txt", Size: 1, Content: strings.NewReader("x"), TopicID: 1})
		assert.ErrorIs(t, err, apperrors.ErrTopicNotFound)
		assert.Zero(t, f.storedFiles(t), "stored bytes are compensated")
	})
}

func TestOpenFileNotFound(t *testing.T) {
	f := newNoteFixture(t, UploadConfig{MaxFileSize: 10})
	for _, name := range []string{"../config.yaml", "missing.txt", ""} {
		_, err := f.svc.OpenFile(context.Background(), name)
		assert.ErrorIs(t, err, apperrors.ErrFileNotFound, name)
	}
}

func TestUpvoteOncePerUser(t *testing.T) {
	f := newNoteFixture(t, UploadConfig{MaxFileSize: 10})
	ctx := context.Background()
	note, err := f.svc.UploadFile(ctx, &UploadInput{Filename: "a.txt", Size: 1, Content: strings.NewReader("x"), TopicID: 1})
	require.NoError(t, err)

	res, err := f.svc.Upvote(ctx, note.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, &models.UpvoteResult{UpvoteCount: 1}, res)

	res, err = f.svc.Upvote(ctx, note.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, &models.UpvoteResult{UpvoteCount: 1, AlreadyUpvoted: true}, res)

	res, err = f.svc.Upvote(ctx, note.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, 2, res.UpvoteCount)

	_, err = f.svc.Upvote(ctx, 999, 7)
	assert.ErrorIs(t, err, apperrors.ErrNoteNotFound)
}

func TestListFilesFilters(t *testing.T) {
	f := newNoteFixture(t, UploadConfig{MaxFileSize: 10})
	ctx := context.Background()
	ann := int64(1)
	_, err := f.svc.UploadFile(ctx, &UploadInput{Filename: "a.txt", Size: 1, Content: strings.NewReader("x"), TopicID: 1, UserID: &ann})
	require.NoError(t, err)
	_, err = f.svc.UploadFile(ctx, &UploadInput{Filename: "b.txt", Size: 1, Content: strings.NewReader("y"), TopicID: 1})
	require.NoError(t, err)

	all, err := f.svc.ListFiles(ctx, repositories.NoteFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.svc.ListFiles(ctx, repositories.NoteFilter{UserID: &ann})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "a.txt", mine[0].OriginalFilename)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "notes.pdf", SanitizeFilename("../../notes.pdf"))
	assert.Equal(t, "notes.pdf", SanitizeFilename(`..\..\notes.pdf`))
	assert.Equal(t, "ab.txt", SanitizeFilename("a\x00b.txt"))
	assert.Equal(t, "", SanitizeFilename(".."))
	long := SanitizeFilename(strings.Repeat("é", 300) + ".md")
	assert.Equal(t, 255, len([]rune(long)))
	assert.True(t, strings.HasSuffix(long, ".md"))
}

type metaFixture struct {
	svc   MetaDocumentService
	docs  *fakeDocRepo
	queue *fakeQueue
	pub   *recordingPublisher
}

func newMetaFixture(notes ...*models.Note) *metaFixture {
	docs := &fakeDocRepo{}
	queue := &fakeQueue{}
	pub := &recordingPublisher{}
	topics := &fakeTopicRepo{topics: []*models.Topic{{ID: 1, Name: "cs35l"}, {ID: 2, Name: "art"}}}
	return &metaFixture{
		svc:   NewMetaDocumentService(docs, topics, newFakeNoteRepo(notes...), queue, pub, zerolog.Nop()),
		docs:  docs,
		queue: queue,
		pub:   pub,
	}
}

func defaultNotes() []*models.Note {
	return []*models.Note{
		{ID: 1, TopicID: 1, OriginalFilename: "week1.pdf", FileURL: models.FileURLPrefix + "a.pdf"},
		{ID: 2, TopicID: 2, OriginalFilename: "painting.png", FileURL: models.FileURLPrefix + "b.png"},
	}
}

func TestProcessTopic(t *testing.T) {
	f := newMetaFixture(defaultNotes()...)
	ctx := context.Background()

	doc, err := f.svc.ProcessTopic(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, doc.ProcessingStatus)
	assert.Equal(t, "cs35l", doc.TopicName)
	assert.Nil(t, doc.NoteID)
	assert.Equal(t, []pipeline.Job{{MetaDocumentID: doc.ID, TopicID: 1, TopicName: "cs35l"}}, f.queue.jobs)
	assert.Equal(t, []string{"pending", "processing"}, f.pub.statuses)

	_, err = f.svc.ProcessTopic(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrProcessingInProgress)

	latest, err := f.svc.GetLatestForTopic(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, latest.ID)
}

func TestProcessTopicRejections(t *testing.T) {
	f := newMetaFixture(defaultNotes()...)
	ctx := context.Background()

	_, err := f.svc.ProcessTopic(ctx, 99)
	assert.ErrorIs(t, err, apperrors.ErrTopicNotFound)

	_, err = f.svc.ProcessTopic(ctx, 2)
	assert.ErrorIs(t, err, apperrors.ErrNoFiles, "images have no extractable text")
	assert.Empty(t, f.docs.docs, "no record is created")
}

func TestProcessTopicQueueUnavailable(t *testing.T) {
	f := newMetaFixture(defaultNotes()...)
	f.queue.err = pipeline.ErrQueueFull

	_, err := f.svc.ProcessTopic(context.Background(), 1)
	assert.ErrorIs(t, err, apperrors.ErrPipelineUnavailable)

	require.Len(t, f.docs.docs, 1)
	stored := f.docs.docs[0]
	assert.Equal(t, models.StatusFailed, stored.ProcessingStatus)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, pipeline.MessageQueueReject, *stored.ErrorMessage)
	assert.Equal(t, []string{"pending", "processing", "failed"}, f.pub.statuses)

}

func TestProcessTopicWhileWorkerHoldsTopic(t *testing.T) {
	f := newMetaFixture(defaultNotes()...)
	ctx := context.Background()

	// Stored status is terminal but the worker has not released the topic yet
	f.queue.active = map[int64]bool{1: true}
	_, err := f.svc.ProcessTopic(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrProcessingInProgress)
	assert.Empty(t, f.docs.docs, "no stray record is created")
	assert.Empty(t, f.pub.statuses)

	// Released between the check and the submit
	f.queue.active = nil
	f.queue.err = pipeline.ErrTopicActive
	_, err = f.svc.ProcessTopic(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrProcessingInProgress)

	require.Len(t, f.docs.docs, 1)
	require.NotNil(t, f.docs.docs[0].ErrorMessage)
	assert.Equal(t, pipeline.MessageTopicActive, *f.docs.docs[0].ErrorMessage)
}

func TestProcessNote(t *testing.T) {
	f := newMetaFixture(defaultNotes()...)

	doc, err := f.svc.ProcessNote(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, doc.NoteID)
	assert.Equal(t, int64(1), *doc.NoteID)
	assert.Equal(t, int64(1), doc.TopicID)

	_, err = f.svc.ProcessNote(context.Background(), 404)
	assert.ErrorIs(t, err, apperrors.ErrNoteNotFound)
}

func TestDownloadRequiresCompleted(t *testing.T) {
	f := newMetaFixture(defaultNotes()...)
	ctx := context.Background()

	doc, err := f.svc.ProcessTopic(ctx, 1)
	require.NoError(t, err)

	_, err = f.svc.Download(ctx, doc.ID)
	assert.ErrorIs(t, err, apperrors.ErrMetaDocumentNotReady)

	require.NoError(t, f.docs.Complete(ctx, doc.ID, &models.MetaDocumentResult{
		Content: "summary", SourceFilenames: []string{"week1.pdf"}, ChunkCount: 1, TokenCount: 10,
	}))

	ready, err := f.svc.Download(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "summary", ready.SynthesizedContent)

	_, err = f.svc.Download(ctx, 500)
	assert.ErrorIs(t, err, apperrors.ErrMetaDocumentNotFound)

	status, err := f.svc.GetStatus(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, status.ProcessingStatus)

	topicID := int64(1)
	list, err := f.svc.List(ctx, &topicID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
