package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Request limits
	MaxRecords      = 100000
	MaxTargetLength = 255
	MaxDimension    = 16384
)

func init() {
	validate = validator.New()
}

// RecordRequest is one conversation record submitted for rendering
type RecordRequest struct {
	Source   string `json:"source" validate:"required,ip"`
	Target   string `json:"target" validate:"required,max=255"`
	Category string `json:"category" validate:"required,oneof=internal proxy dns external"`
	Packets  int64  `json:"packets" validate:"min=0"`
	Port     int    `json:"port" validate:"min=0,max=65535"`
}

// GraphRequest asks for a graph over inline records
type GraphRequest struct {
	Records  []RecordRequest `json:"records" validate:"required,max=100000,dive"`
	Width    float64         `json:"width" validate:"omitempty,min=0,max=16384"`
	Height   float64         `json:"height" validate:"omitempty,min=0,max=16384"`
	Selected string          `json:"selected" validate:"omitempty,oneof=internal proxy dns external"`
}

// Record converts a validated request into a traffic record
func (r *RecordRequest) Record() traffic.Record {
	return traffic.Record{
		Source:   r.Source,
		Target:   r.Target,
		Category: traffic.Category(strings.ToLower(r.Category)),
		Packets:  r.Packets,
		Port:     r.Port,
	}
}

// TrafficRecords converts every record of a validated request
func (g *GraphRequest) TrafficRecords() []traffic.Record {
	out := make([]traffic.Record, len(g.Records))
	for i := range g.Records {
		out[i] = g.Records[i].Record()
	}
	return out
}

func (r *RecordRequest) normalize() {
	r.Source = strings.TrimSpace(r.Source)
	r.Target = strings.TrimSpace(r.Target)
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
}

// ValidateRecord validates one submitted record
func ValidateRecord(req *RecordRequest) error {
	if req == nil {
		return errors.New("record request cannot be nil")
	}
	req.normalize()

	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateGraphRequest validates a graph request and all its records
func ValidateGraphRequest(req *GraphRequest) error {
	if req == nil {
		return errors.New("graph request cannot be nil")
	}
	for i := range req.Records {
		req.Records[i].normalize()
	}
	req.Selected = strings.ToLower(strings.TrimSpace(req.Selected))

	if len(req.Records) > MaxRecords {
		return fmt.Errorf("Records: maximum %d records allowed, got %d", MaxRecords, len(req.Records))
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateRecords checks records decoded from a file before they reach the
// graph builder. The first invalid record is reported by index.
func ValidateRecords(records []traffic.Record) error {
	for i, r := range records {
		req := RecordRequest{
			Source:   r.Source,
			Target:   r.Target,
			Category: string(r.Category),
			Packets:  r.Packets,
			Port:     r.Port,
		}
		if err := ValidateRecord(&req); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

// ValidateDimensions checks a requested canvas size. Zero means default.
func ValidateDimensions(width, height float64) error {
	if width < 0 || width > float64(MaxDimension) {
		return fmt.Errorf("width: must be between 0 and %d", MaxDimension)
	}
	if height < 0 || height > float64(MaxDimension) {
		return fmt.Errorf("height: must be between 0 and %d", MaxDimension)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "ip":
			return fmt.Errorf("%s: %q is not an IP address", field, e.Value())
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
