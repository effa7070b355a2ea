package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"wasteroute-backend/internal/models"
	"wasteroute-backend/internal/ports"
)

// IntakeService turns citizen submissions into pending reports
type IntakeService struct {
	reports        ports.ReportRepository
	classifier     Classifier
	geocoder       Geocoder
	geocodeTimeout time.Duration
	dispatcher     *Dispatcher
	now            func() time.Time
}

// NewIntakeService wires report creation. geocoder may be nil, in which case
// reports are stored without an address.
func NewIntakeService(reports ports.ReportRepository, classifier Classifier, geocoder Geocoder, geocodeTimeout time.Duration, dispatcher *Dispatcher) *IntakeService {
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}
	return &IntakeService{
		reports:        reports,
		classifier:     classifier,
		geocoder:       geocoder,
		geocodeTimeout: geocodeTimeout,
		dispatcher:     dispatcher,
		now:            time.Now,
	}
}

// CreateReport validates, classifies and stores a new pending report.
// Geocoding is best-effort: a failed lookup leaves the address empty.
func (s *IntakeService) CreateReport(ctx context.Context, actor Actor, req models.CreateReportRequest) (*models.Report, error) {
	if err := requireRole(actor, models.RoleCitizen); err != nil {
		return nil, err
	}
	if req.Location == nil {
		return nil, &models.ValidationError{Field: "location", Message: "is required as [lng, lat]"}
	}
	location := *req.Location
	if !ValidCoordinate(location) {
		return nil, &models.ValidationError{
			Field:   "location",
			Message: fmt.Sprintf("invalid coordinate (%v, %v), expected [lng, lat]", location.Lon(), location.Lat()),
		}
	}

	urgency := req.Urgency
	if urgency == "" {
		urgency = models.UrgencyMedium
	}
	if !urgency.Valid() {
		return nil, &models.ValidationError{Field: "urgency", Message: fmt.Sprintf("unknown urgency %q", req.Urgency)}
	}
	if req.EstimatedQuantity != nil && *req.EstimatedQuantity < 0 {
		return nil, &models.ValidationError{Field: "estimated_quantity", Message: "must not be negative"}
	}

	now := s.now().Unix()
	report := &models.Report{
		ID:                uuid.New().String(),
		ReporterID:        actor.UserID,
		Longitude:         location.Lon(),
		Latitude:          location.Lat(),
		Status:            models.ReportStatusPending,
		Urgency:           urgency,
		WasteType:         strings.ToLower(strings.TrimSpace(req.WasteType)),
		Description:       strings.TrimSpace(req.Description),
		EstimatedQuantity: req.EstimatedQuantity,
		ImageFilename:     req.ImageFilename,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if report.WasteType == "" {
		filename := ""
		if req.ImageFilename != nil {
			filename = *req.ImageFilename
		}
		c := s.classifier.Classify(filename, nil)
		report.WasteType = c.Type
		report.ClassifierConfidence = &c.Confidence
	}

	if address := s.reverseGeocode(ctx, report.Latitude, report.Longitude); address != "" {
		report.Address = &address
	}

	if err := s.reports.CreateReport(ctx, report); err != nil {
		return nil, err
	}

	log.Printf("📝 Report %s created by %s (%s, %s)", report.ID, actor.UserID, report.WasteType, report.Urgency)
	s.dispatcher.Emit(LifecycleEvent{
		Type:       EventReportCreated,
		ReportID:   report.ID,
		Status:     report.Status,
		ReporterID: report.ReporterID,
		Timestamp:  now,
	})
	return report, nil
}

func (s *IntakeService) reverseGeocode(ctx context.Context, lat, lng float64) string {
	if s.geocoder == nil {
		return ""
	}
	if s.geocodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.geocodeTimeout)
		defer cancel()
	}

	address, err := s.geocoder.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		log.Printf("⚠️  Reverse geocoding failed for (%f, %f): %v", lat, lng, err)
		return ""
	}
	return address
}
