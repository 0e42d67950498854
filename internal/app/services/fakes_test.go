package services

import (
	"context"
	"sync"
	"time"

	"github.com/yigit/notespace/internal/app/models"
	"github.com/yigit/notespace/internal/app/pipeline"
	"github.com/yigit/notespace/internal/app/repositories"
	"github.com/yigit/notespace/internal/pkg/apperrors"
	"github.com/yigit/notespace/internal/pkg/websocket"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.Email]; ok {
		return apperrors.ErrEmailAlreadyExists
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	f.users[user.Email] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *fakeUserRepo) EmailExists(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[email]
	return ok, nil
}

type fakeTokenRepo struct {
	revoked map[string]*models.RevokedToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{revoked: map[string]*models.RevokedToken{}}
}

func (f *fakeTokenRepo) Revoke(_ context.Context, token *models.RevokedToken) error {
	f.revoked[token.JTI] = token
	return nil
}

func (f *fakeTokenRepo) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := f.revoked[jti]
	return ok, nil
}

func (f *fakeTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for jti, t := range f.revoked {
		if t.ExpiresAt.Before(now) {
			delete(f.revoked, jti)
			n++
		}
	}
	return n, nil
}

type fakeTopicRepo struct {
	topics []*models.Topic
}

func (f *fakeTopicRepo) List(context.Context) ([]*models.Topic, error) {
	return f.topics, nil
}

func (f *fakeTopicRepo) Create(_ context.Context, topic *models.Topic) error {
	topic.ID = int64(len(f.topics) + 1)
	topic.CreatedAt = time.Now()
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakeTopicRepo) GetByID(_ context.Context, id int64) (*models.Topic, error) {
	for _, t := range f.topics {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, apperrors.ErrTopicNotFound
}

func (f *fakeTopicRepo) Count(context.Context) (int64, error) {
	return int64(len(f.topics)), nil
}

type fakeNoteRepo struct {
	notes     []*models.Note
	upvotes   map[[2]int64]bool
	createErr error
}

func newFakeNoteRepo(notes ...*models.Note) *fakeNoteRepo {
	return &fakeNoteRepo{notes: notes, upvotes: map[[2]int64]bool{}}
}

func (f *fakeNoteRepo) Create(_ context.Context, note *models.Note) error {
	if f.createErr != nil {
		return f.createErr
	}
	note.ID = int64(len(f.notes) + 1)
	note.UploadedAt = time.Now()
	f.notes = append(f.notes, note)
	return nil
}

func (f *fakeNoteRepo) GetByID(_ context.Context, id int64) (*models.Note, error) {
	for _, n := range f.notes {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, apperrors.ErrNoteNotFound
}

func (f *fakeNoteRepo) List(_ context.Context, filter repositories.NoteFilter) ([]*models.Note, error) {
	out := make([]*models.Note, 0)
	for _, n := range f.notes {
		if filter.TopicID != nil && n.TopicID != *filter.TopicID {
			continue
		}
		if filter.UserID != nil && (n.UserID == nil || *n.UserID != *filter.UserID) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeNoteRepo) Upvote(ctx context.Context, noteID, userID int64) (*models.UpvoteResult, error) {
	note, err := f.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	key := [2]int64{userID, noteID}
	if f.upvotes[key] {
		return &models.UpvoteResult{UpvoteCount: note.UpvoteCount, AlreadyUpvoted: true}, nil
	}
	f.upvotes[key] = true
	note.UpvoteCount++
	return &models.UpvoteResult{UpvoteCount: note.UpvoteCount}, nil
}

type fakeDocRepo struct {
	docs []*models.MetaDocument
}

func (f *fakeDocRepo) Create(_ context.Context, doc *models.MetaDocument) error {
	for _, d := range f.docs {
		if d.TopicID == doc.TopicID && d.ProcessingStatus.Active() {
			return apperrors.ErrProcessingInProgress
		}
	}
	doc.ID = int64(len(f.docs) + 1)
	doc.ProcessingStatus = models.StatusPending
	doc.SourceFilenames = []string{}
	stored := *doc
	f.docs = append(f.docs, &stored)
	return nil
}

func (f *fakeDocRepo) GetByID(_ context.Context, id int64) (*models.MetaDocument, error) {
	for _, d := range f.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, apperrors.ErrMetaDocumentNotFound
}

func (f *fakeDocRepo) GetLatestByTopic(_ context.Context, topicID int64) (*models.MetaDocument, error) {
	for i := len(f.docs) - 1; i >= 0; i-- {
		if f.docs[i].TopicID == topicID {
			return f.docs[i], nil
		}
	}
	return nil, apperrors.ErrMetaDocumentNotFound
}

func (f *fakeDocRepo) List(_ context.Context, topicID *int64) ([]*models.MetaDocument, error) {
	out := make([]*models.MetaDocument, 0)
	for i := len(f.docs) - 1; i >= 0; i-- {
		if topicID == nil || f.docs[i].TopicID == *topicID {
			out = append(out, f.docs[i])
		}
	}
	return out, nil
}

func (f *fakeDocRepo) move(id int64, to models.ProcessingStatus) (*models.MetaDocument, error) {
	d, err := f.GetByID(context.Background(), id)
	if err != nil {
		return nil, err
	}
	if !d.ProcessingStatus.CanTransition(to) {
		return nil, apperrors.ErrInvalidTransition
	}
	d.ProcessingStatus = to
	return d, nil
}

func (f *fakeDocRepo) MarkProcessing(_ context.Context, id int64) error {
	_, err := f.move(id, models.StatusProcessing)
	return err
}

func (f *fakeDocRepo) Complete(_ context.Context, id int64, result *models.MetaDocumentResult) error {
	d, err := f.move(id, models.StatusCompleted)
	if err != nil {
		return err
	}
	d.SynthesizedContent = result.Content
	d.SourceFilenames = result.SourceFilenames
	d.ChunkCount = result.ChunkCount
	d.TokenCount = result.TokenCount
	return nil
}

func (f *fakeDocRepo) Fail(_ context.Context, id int64, message string) error {
	d, err := f.move(id, models.StatusFailed)
	if err != nil {
		return err
	}
	d.ErrorMessage = &message
	return nil
}

func (f *fakeDocRepo) FailActive(_ context.Context, message string) (int64, error) {
	var n int64
	for _, d := range f.docs {
		if d.ProcessingStatus.Active() {
			d.ProcessingStatus = models.StatusFailed
			d.ErrorMessage = &message
			n++
		}
	}
	return n, nil
}

type fakeQueue struct {
	err    error
	jobs   []pipeline.Job
	active map[int64]bool
}

func (f *fakeQueue) Active(topicID int64) bool {
	return f.active[topicID]
}

func (f *fakeQueue) Submit(job pipeline.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type recordingPublisher struct {
	statuses []string
}

func (r *recordingPublisher) Publish(e *websocket.StatusEvent) {
	r.statuses = append(r.statuses, e.ProcessingStatus)
}
