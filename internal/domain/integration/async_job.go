package integration

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// JobKind / JobStatus
// ---------------------------------------------------------------------------

// JobKind is the kind of provider-side computation
type JobKind string

const (
	JobKindForecast     JobKind = "forecast"
	JobKindAvailability JobKind = "availability"
)

// IsValid checks if the job kind is supported
func (k JobKind) IsValid() bool {
	return k == JobKindForecast || k == JobKindAvailability
}

// JobStatus is the lifecycle state of an async job
type JobStatus string

const (
	JobStatusEnqueued JobStatus = "enqueued"
	JobStatusRunning  JobStatus = "running"
	JobStatusFinished JobStatus = "finished"
	JobStatusError    JobStatus = "error"
)

// IsTerminal reports whether polling can stop
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFinished || s == JobStatusError
}

// ---------------------------------------------------------------------------
// JobSpec
// ---------------------------------------------------------------------------

// Targeting narrows a job to inventory
type Targeting struct {
	ZoneIDs []int64 `json:"zone_ids,omitempty" validate:"omitempty,dive,gt=0"`
	SiteIDs []int64 `json:"site_ids,omitempty" validate:"omitempty,dive,gt=0"`
}

// IsEmpty reports whether no zone or site is selected
func (t Targeting) IsEmpty() bool {
	return len(t.ZoneIDs) == 0 && len(t.SiteIDs) == 0
}

// JobSpec describes an async job request
type JobSpec struct {
	Kind       JobKind   `json:"job_kind" validate:"required"`
	StartDate  time.Time `json:"start_date" validate:"required"`
	EndDate    time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	SampleRate float64   `json:"sample_rate,omitempty" validate:"omitempty,gt=0,lte=1"`
	Priority   int       `json:"priority,omitempty" validate:"omitempty,min=0,max=100"`
	Targeting  Targeting `json:"targeting"`
}

var (
	specValidatorOnce sync.Once
	specValidator     *validator.Validate
)

func jobSpecValidator() *validator.Validate {
	specValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		specValidator = v
	})
	return specValidator
}

// Validate checks the job parameters for its kind. It performs no I/O.
func (s JobSpec) Validate() error {
	if !s.Kind.IsValid() {
		return &InvalidJobSpecError{Kind: s.Kind, Field: "job_kind", Reason: "is not a supported job kind"}
	}

	if err := jobSpecValidator().Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &InvalidJobSpecError{Kind: s.Kind, Field: fe.Field(), Reason: reasonForTag(fe)}
		}
		return &InvalidJobSpecError{Kind: s.Kind, Reason: err.Error()}
	}

	if s.Kind == JobKindAvailability && s.Targeting.IsEmpty() {
		return &InvalidJobSpecError{Kind: s.Kind, Field: "targeting", Reason: "requires at least one zone or site"}
	}
	return nil
}

func reasonForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gtfield":
		return "must be after start_date"
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// ---------------------------------------------------------------------------
// AsyncJob
// ---------------------------------------------------------------------------

// AsyncJob is a snapshot of a provider-side job. It is never persisted;
// the caller keeps ExternalJobID between polls.
type AsyncJob struct {
	ExternalJobID string
	IntegrationID uuid.UUID
	Kind          JobKind
	Status        JobStatus
	// Progress is in [0, 100]
	Progress int
	Result   map[string]any
	Error    string
}

// ClampProgress bounds a provider progress value to [0, 100]
func ClampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// JobResultArchive keeps finished job results outside the engine.
// The engine itself holds no job state.
type JobResultArchive interface {
	Store(ctx context.Context, job *AsyncJob) error
}
