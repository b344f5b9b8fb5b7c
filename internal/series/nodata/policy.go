// Package nodata decides whether a raw observation payload equals the
// configured "no data" sentinel of its source. A sentinel match means
// "explicitly no measurement", which is distinct from an absent row.
package nodata

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/internal/series/model"
)

// Policy answers sentinel checks. Global sentinels apply to every
// service; a service entity may carry additional ones.
type Policy struct {
	globals []string
}

// New builds a policy with the given global sentinel values.
func New(globalSentinels ...string) *Policy {
	return &Policy{globals: globalSentinels}
}

// IsNoData reports whether the payload equals a configured sentinel
// for the given service. Empty payloads are no-data by definition.
func (p *Policy) IsNoData(service *model.Entity, value model.ObservationValue) bool {
	if value.IsEmpty() {
		return true
	}
	sentinels := p.globals
	if service != nil {
		sentinels = append(sentinels, service.NoDataValues...)
	}
	for _, sentinel := range sentinels {
		if matches(sentinel, value) {
			return true
		}
	}
	return false
}

func matches(sentinel string, value model.ObservationValue) bool {
	switch {
	case value.Text != nil:
		return strings.EqualFold(strings.TrimSpace(sentinel), strings.TrimSpace(*value.Text))
	case value.Quantity != nil:
		d, err := decimal.NewFromString(strings.TrimSpace(sentinel))
		if err != nil {
			return false
		}
		return value.Quantity.Equal(d)
	case value.Count != nil:
		n, err := strconv.ParseInt(strings.TrimSpace(sentinel), 10, 64)
		if err != nil {
			return false
		}
		return *value.Count == n
	default:
		// record payloads have no scalar sentinel form
		return false
	}
}
