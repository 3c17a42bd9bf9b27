package dialog

import (
	"strings"

	"github.com/ggonzalez94/gud-quote/internal/registry"
)

type EventKind int

const (
	EventUnknown EventKind = iota
	EventEstimateRequested
	EventNetworkSelected
	EventPairSelected
	EventBack
)

func (k EventKind) String() string {
	switch k {
	case EventEstimateRequested:
		return "estimate-requested"
	case EventNetworkSelected:
		return "network-selected"
	case EventPairSelected:
		return "pair-selected"
	case EventBack:
		return "back"
	default:
		return "unknown"
	}
}

// Event is one user selection. Transports carry it as the opaque string returned
// by Data and turn it back into an Event with ParseEvent.
type Event struct {
	Kind    EventKind
	Network registry.Network
	PairKey string
	Raw     string
}

const (
	dataSwap          = "swap"
	dataBack          = "back"
	dataNetworkPrefix = "network:"
	dataPairPrefix    = "pair:"
)

func EstimateRequested() Event { return Event{Kind: EventEstimateRequested, Raw: dataSwap} }

func Back() Event { return Event{Kind: EventBack, Raw: dataBack} }

func NetworkSelected(network registry.Network) Event {
	return Event{Kind: EventNetworkSelected, Network: network, Raw: dataNetworkPrefix + string(network)}
}

func PairSelected(pairKey string) Event {
	return Event{Kind: EventPairSelected, PairKey: pairKey, Raw: dataPairPrefix + pairKey}
}

// Data is the callback payload for the event.
func (e Event) Data() string {
	switch e.Kind {
	case EventEstimateRequested:
		return dataSwap
	case EventBack:
		return dataBack
	case EventNetworkSelected:
		return dataNetworkPrefix + string(e.Network)
	case EventPairSelected:
		return dataPairPrefix + e.PairKey
	default:
		return e.Raw
	}
}

func (e Event) MarshalText() ([]byte, error) { return []byte(e.Data()), nil }

func (e *Event) UnmarshalText(b []byte) error {
	*e = ParseEvent(string(b))
	return nil
}

// ParseEvent decodes a callback payload. Unrecognized payloads, including a
// network outside the known classes, become EventUnknown.
func ParseEvent(data string) Event {
	raw := strings.TrimSpace(data)
	switch {
	case raw == dataSwap || raw == "/swap":
		return EstimateRequested()
	case raw == dataBack:
		return Back()
	case strings.HasPrefix(raw, dataNetworkPrefix):
		network := registry.Network(strings.ToLower(strings.TrimPrefix(raw, dataNetworkPrefix)))
		if !network.Valid() {
			return Event{Kind: EventUnknown, Raw: raw}
		}
		return NetworkSelected(network)
	case strings.HasPrefix(raw, dataPairPrefix):
		key := strings.TrimSpace(strings.TrimPrefix(raw, dataPairPrefix))
		return PairSelected(key)
	default:
		return Event{Kind: EventUnknown, Raw: raw}
	}
}
