package intake

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"getcanvapro/cmd/internal/storage"
)

type brokenStore struct{ *storage.MemoryStore }

func (brokenStore) CreateApplication(context.Context, storage.Application) (storage.Application, error) {
	return storage.Application{}, errors.New("disk full")
}

type resultCounter map[string]int

func (r resultCounter) IntakeResult(result string) { r[result]++ }

func newTestService(t *testing.T, st storage.Store) (*Service, *storage.Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo := storage.NewRepository(st, nil)
	return NewService(nil, repo, NewResumeStore(dir, DefaultMaxResumeBytes)), repo, dir
}

func validInput(body []byte, filename string) ApplyInput {
	return ApplyInput{
		Name:       "Jane Doe",
		Email:      "jane@example.com",
		Phone:      "+91 98765 43210",
		ResumeName: filename,
		ResumeSize: int64(len(body)),
		Resume:     bytes.NewReader(body),
	}
}

func TestService_Apply_FourMegabytePDF(t *testing.T) {
	t.Parallel()
	svc, repo, dir := newTestService(t, storage.NewMemoryStore())
	body := bytes.Repeat([]byte("a"), 4<<20)

	app, err := svc.Apply(context.Background(), validInput(body, "resume.pdf"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if app.Status != storage.StatusPending || app.CreatedAt.IsZero() || app.ID == "" {
		t.Fatalf("unexpected record: %+v", app)
	}

	list := repo.ListApplications(context.Background())
	if len(list) != 1 || list[0].ID != app.ID {
		t.Fatalf("expected exactly one stored record, got %+v", list)
	}

	if !strings.HasPrefix(app.ResumePath, filepath.ToSlash(dir)+"/") || !strings.HasSuffix(app.ResumePath, ".pdf") {
		t.Fatalf("resume_path = %q", app.ResumePath)
	}
	fi, err := os.Stat(filepath.FromSlash(app.ResumePath))
	if err != nil || fi.Size() != 4<<20 {
		t.Fatalf("stored resume: %v size=%v", err, fi)
	}
}

func TestService_Apply_ExeRejectedBeforePersistence(t *testing.T) {
	t.Parallel()
	svc, repo, dir := newTestService(t, storage.NewMemoryStore())

	_, err := svc.Apply(context.Background(), validInput([]byte("MZ"), "resume.exe"))
	if !errors.Is(err, ErrInvalidFileType) {
		t.Fatalf("expected ErrInvalidFileType, got %v", err)
	}
	if got := repo.ListApplications(context.Background()); len(got) != 0 {
		t.Fatalf("expected no records, got %d", len(got))
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected no files written, got %d", len(entries))
	}
}

func TestService_Apply_Oversize(t *testing.T) {
	t.Parallel()
	svc, repo, _ := newTestService(t, storage.NewMemoryStore())

	in := validInput(bytes.Repeat([]byte("a"), 5<<20+1), "cv.docx")
	if _, err := svc.Apply(context.Background(), in); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}

	// Unknown size is caught while copying.
	in = validInput(bytes.Repeat([]byte("a"), 5<<20+1), "cv.docx")
	in.ResumeSize = -1
	if _, err := svc.Apply(context.Background(), in); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge for streamed body, got %v", err)
	}
	if got := repo.ListApplications(context.Background()); len(got) != 0 {
		t.Fatalf("expected no records, got %d", len(got))
	}
}

func TestService_Apply_ValidationBeforeFileChecks(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t, storage.NewMemoryStore())

	in := validInput([]byte("MZ"), "resume.exe")
	in.Email = "not-an-email"

	_, err := svc.Apply(context.Background(), in)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Fields["email"] == "" {
		t.Fatalf("expected email validation error, got %v", err)
	}
}

func TestService_Apply_MissingResume(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t, storage.NewMemoryStore())

	in := validInput(nil, "")
	in.Resume = nil

	_, err := svc.Apply(context.Background(), in)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Fields["resume"] != "Please upload your resume" {
		t.Fatalf("expected resume validation error, got %v", err)
	}
}

func TestService_Apply_StorageFailureRemovesResume(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	repo := storage.NewRepository(brokenStore{storage.NewMemoryStore()}, nil)
	results := resultCounter{}
	svc := NewService(nil, repo, NewResumeStore(dir, DefaultMaxResumeBytes), WithResultRecorder(results))

	_, err := svc.Apply(context.Background(), validInput([]byte("%PDF"), "cv.pdf"))
	if !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("expected ErrSubmissionFailed, got %v", err)
	}
	if IsClientError(err) {
		t.Fatalf("storage failure must not be a client error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("orphan resume left behind: %d files", len(entries))
	}
	if results["failed"] != 1 {
		t.Fatalf("results = %v", results)
	}
}

func TestService_Apply_IdenticalSubmissionsAreDistinct(t *testing.T) {
	t.Parallel()
	svc, repo, _ := newTestService(t, storage.NewMemoryStore())

	a, err := svc.Apply(context.Background(), validInput([]byte("%PDF"), "cv.pdf"))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := svc.Apply(context.Background(), validInput([]byte("%PDF"), "cv.pdf"))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if a.ID == b.ID || a.ResumePath == b.ResumePath {
		t.Fatalf("expected distinct records, got %+v and %+v", a, b)
	}
	if got := svc.List(context.Background()); len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	stored := repo.ListApplications(context.Background())
	if len(stored) != 2 || stored[0].ID == stored[1].ID {
		t.Fatalf("repository holds %+v", stored)
	}
}
