package extract

import (
	"strings"

	"go.uber.org/zap"

	"github.com/coolbeans/marcx/pkg/classify"
	"github.com/coolbeans/marcx/pkg/marc"
)

// CallNumber returns subfields a and b of the first 090 occurrence.
func (p *Pipeline) CallNumber(fields marc.Fields) Slot {
	content, ok := fields.First("090")
	if !ok {
		return p.notFound(CallNumber, "090", "field not present")
	}
	callNumber := strings.TrimSpace(marc.Subfield(content, 'a') + marc.Subfield(content, 'b'))
	if callNumber == "" {
		return p.notFound(CallNumber, "090", "call number is empty")
	}
	return p.found(CallNumber, "090", callNumber)
}

// LocationCode classifies the call number into a special shelving location.
func (p *Pipeline) LocationCode(fields marc.Fields) Slot {
	return p.locationCode(p.CallNumber(fields))
}

func (p *Pipeline) locationCode(callNumber Slot) Slot {
	if !callNumber.OK() {
		return p.notFound(LocationCode, "090", "no call number to classify")
	}

	result := p.classifier.Classify(callNumber.Value)
	switch result.Outcome {
	case classify.Unparseable:
		p.logger.Warn("call number has no class number",
			zap.String("slot", LocationCode.Key()),
			zap.String("call_number", callNumber.Value),
		)
	case classify.NoMatch:
		p.logger.Debug("no shelving range matched",
			zap.String("slot", LocationCode.Key()),
			zap.Float64("class_number", result.Value),
		)
	default:
		p.logger.Debug("slot extracted",
			zap.String("slot", LocationCode.Key()),
			zap.String("tag", "090"),
			zap.String("value", result.Label),
		)
	}
	return LocationSlot(result)
}

// LocationSlot converts a classifier result into a LocationCode slot. A value
// outside every range is OK with an empty label.
func LocationSlot(result classify.Result) Slot {
	switch result.Outcome {
	case classify.Unparseable:
		return Slot{Value: classify.UnparseableLabel, Status: Unparseable}
	case classify.NoMatch:
		return Found("")
	default:
		return Found(result.Label)
	}
}
