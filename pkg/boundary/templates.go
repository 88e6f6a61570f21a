package boundary

import (
	"time"

	"github.com/cuemby/hostbroker/pkg/brokererr"
	"github.com/cuemby/hostbroker/pkg/log"
	"github.com/cuemby/hostbroker/pkg/metrics"
	"github.com/cuemby/hostbroker/pkg/types"
)

const opGetAvailableTemplates = "getAvailableTemplates"

// TemplateView is one template entry in the getAvailableTemplates response.
// The Long fields are populated only when the caller passes long=true;
// they are read back from the stored Template rather than a live cloud
// call, since no provider handler in this tree exercises a pricing or
// subnet-description API (see DESIGN.md).
type TemplateView struct {
	TemplateID string `json:"templateId"`
	MaxNumber  int    `json:"maxNumber"`
	ImageID    string `json:"imageId"`
	Strategy   string `json:"strategy"`

	SubnetID         string   `json:"subnetId,omitempty"`
	SubnetSet        []string `json:"subnetSet,omitempty"`
	SecurityGroupIDs []string `json:"securityGroupIds,omitempty"`
	MaxPrice         *float64 `json:"maxPrice,omitempty"`
}

// GetAvailableTemplatesOutput is the success payload for
// getAvailableTemplates.
type GetAvailableTemplatesOutput struct {
	Templates []TemplateView `json:"templates"`
	Metadata  Metadata       `json:"metadata"`
}

// GetAvailableTemplates lists every template in the template store. When
// long is true, each entry also includes its network placement, security
// groups, and spot price ceiling (spec.md §4.7 "resolved cloud-side
// details ... if a cloud client is configured").
func (s *Service) GetAvailableTemplates(long bool) (GetAvailableTemplatesOutput, *FailureEnvelope) {
	correlationID := newCorrelationID()
	logger := log.WithComponent("boundary")

	if !s.Limiter.Allow(opGetAvailableTemplates) {
		err := brokererr.RateLimit(opGetAvailableTemplates)
		metrics.BoundaryOperationsTotal.WithLabelValues(opGetAvailableTemplates, "rate_limited").Inc()
		env := newFailureEnvelope(err, correlationID, "")
		return GetAvailableTemplatesOutput{}, &env
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.BoundaryOperationDuration, opGetAvailableTemplates)

	tmpls := s.Templates.List()
	views := make([]TemplateView, 0, len(tmpls))
	for _, t := range tmpls {
		views = append(views, toTemplateView(t, long))
	}

	metrics.BoundaryOperationsTotal.WithLabelValues(opGetAvailableTemplates, "ok").Inc()
	logger.Info().Str("correlation_id", correlationID).Int("count", len(views)).Msg("listed available templates")

	return GetAvailableTemplatesOutput{
		Templates: views,
		Metadata: Metadata{
			CorrelationID: correlationID,
			Timestamp:     time.Now().Unix(),
		},
	}, nil
}

func toTemplateView(t types.Template, long bool) TemplateView {
	view := TemplateView{
		TemplateID: t.TemplateID,
		MaxNumber:  t.MaxNumber,
		ImageID:    t.ImageID,
		Strategy:   string(t.Strategy),
	}
	if !long {
		return view
	}
	view.SubnetID = t.Network.SingleSubnet
	view.SubnetSet = t.Network.SubnetSet
	view.SecurityGroupIDs = t.SecurityGroupIDs
	view.MaxPrice = t.MaxPrice
	return view
}
