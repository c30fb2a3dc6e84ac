package services

import (
	"sync"
	"testing"

	"taskmanager/backend/database"
	"taskmanager/backend/models"
	"taskmanager/backend/storage"
	"taskmanager/backend/testutils"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type published struct {
	subject string
	data    []byte
}

// recordingPublisher keeps every published message in memory
type recordingPublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, published{subject: subject, data: data})
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

type testEnv struct {
	db          *database.Database
	fs          afero.Fs
	store       *storage.BlobStore
	publisher   *recordingPublisher
	events      *EventHandlerService
	attachments *AttachmentService
	users       *UserService
	tasks       *TaskService
	auth        *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	db := testutils.SetupTestDB(t)
	fs := afero.NewMemMapFs()
	store := storage.NewBlobStore(fs)
	publisher := &recordingPublisher{}

	events := NewEventHandlerService(db, publisher, logger)
	attachments := NewAttachmentService(store, DefaultMaxDocumentSize, logger)
	users := NewUserService(db, events)

	return &testEnv{
		db:          db,
		fs:          fs,
		store:       store,
		publisher:   publisher,
		events:      events,
		attachments: attachments,
		users:       users,
		tasks:       NewTaskService(db, attachments, users, events, logger),
		auth:        NewAuthService(db, events, "test-secret", 24),
	}
}

func actorFor(user models.User) Actor {
	return Actor{UserID: user.ID, Role: user.Role}
}

func (e *testEnv) blobExists(t *testing.T, doc models.Attachment) bool {
	t.Helper()
	ok, err := e.store.Exists(doc.StoragePath)
	if err != nil {
		t.Fatalf("failed to stat blob %s: %v", doc.StoragePath, err)
	}
	return ok
}
