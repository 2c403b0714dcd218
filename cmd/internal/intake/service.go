package intake

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"getcanvapro/cmd/internal/storage"
)

// Repository is the persistence the service needs.
type Repository interface {
	CreateApplication(ctx context.Context, in storage.NewApplication) (storage.Application, error)
	ListApplications(ctx context.Context) []storage.Application
}

// ResultRecorder observes submission outcomes (metrics).
type ResultRecorder interface {
	IntakeResult(result string)
}

type nopRecorder struct{}

func (nopRecorder) IntakeResult(string) {}

// ApplyInput is one submission. ResumeSize is -1 when unknown.
// Resume is nil when no file was attached.
type ApplyInput struct {
	Name  string
	Email string
	Phone string

	ResumeName string
	ResumeSize int64
	Resume     io.Reader
}

// Service validates submissions, stores the résumé and records the application.
type Service struct {
	log      *slog.Logger
	repo     Repository
	resumes  *ResumeStore
	maxBytes int64
	results  ResultRecorder
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithResultRecorder sets the metrics sink.
func WithResultRecorder(r ResultRecorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.results = r
		}
	}
}

// NewService wires a Service.
func NewService(log *slog.Logger, repo Repository, resumes *ResumeStore, opts ...ServiceOption) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		log:      log,
		repo:     repo,
		resumes:  resumes,
		maxBytes: resumes.maxBytes,
		results:  nopRecorder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// MaxResumeBytes returns the configured résumé cap.
func (s *Service) MaxResumeBytes() int64 { return s.maxBytes }

// Apply runs one submission. Client errors are *ValidationError, ErrInvalidFileType,
// ErrFileTooLarge or ErrEmptyFile. Anything else is ErrSubmissionFailed.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (storage.Application, error) {
	app, err := s.apply(ctx, in)
	switch {
	case err == nil:
		s.results.IntakeResult("accepted")
	case IsClientError(err):
		s.results.IntakeResult("rejected")
	default:
		s.results.IntakeResult("failed")
	}
	return app, err
}

func (s *Service) apply(ctx context.Context, in ApplyInput) (storage.Application, error) {
	if err := ValidateFields(in.Name, in.Email, in.Phone, in.Resume != nil); err != nil {
		return storage.Application{}, err
	}
	if err := CheckResume(in.ResumeName, in.ResumeSize, s.maxBytes); err != nil {
		return storage.Application{}, err
	}

	path, size, err := s.resumes.Save(in.ResumeName, in.Resume)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) || errors.Is(err, ErrEmptyFile) {
			return storage.Application{}, err
		}
		s.log.Error("intake.resume.save.fail", "err", err)
		return storage.Application{}, ErrSubmissionFailed
	}

	app, err := s.repo.CreateApplication(ctx, storage.NewApplication{
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		ResumePath: path,
	})
	if err != nil {
		if rerr := s.resumes.Remove(path); rerr != nil {
			s.log.Warn("intake.resume.cleanup.fail", "path", path, "err", rerr)
		}
		s.log.Error("intake.apply.fail", "err", err)
		return storage.Application{}, ErrSubmissionFailed
	}

	s.log.Info("intake.apply.ok", "application_id", app.ID, "resume_bytes", size)
	return app, nil
}

// List returns every stored application, oldest first.
func (s *Service) List(ctx context.Context) []storage.Application {
	return s.repo.ListApplications(ctx)
}
