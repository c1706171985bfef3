package services

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/cespare/xxhash/v2"
)

// maxNameDraws bounds redraws when the generator repeats a name.
const maxNameDraws = 64

// Pseudonymizer maps real customer and location identifiers to fake display
// values.
//
// Names come from one generator seeded with the configured seed and are
// drawn in the order customer ids are given (first appearance, duplicates
// skipped), so the same seed and the same id sequence always produce the
// same mapping. A name the generator repeats is redrawn to keep the mapping
// one-to-one.
//
// Cities are derived on demand from a generator re-seeded per location with
// a hash of the location id, so a location's city does not depend on which
// other locations exist or in which order they are seen. Building the
// mapping therefore needs only the customer ids.
type Pseudonymizer struct {
	seed     uint64
	order    []string
	idToName map[string]string
	nameToID map[string]string
}

func NewPseudonymizer(seed uint64, customerIDs []string) (*Pseudonymizer, error) {
	if seed == 0 {
		return nil, fmt.Errorf("pseudonym seed must be non-zero")
	}
	p := &Pseudonymizer{
		seed:     seed,
		idToName: make(map[string]string, len(customerIDs)),
		nameToID: make(map[string]string, len(customerIDs)),
	}

	faker := gofakeit.New(seed)
	for _, id := range customerIDs {
		if _, seen := p.idToName[id]; seen {
			continue
		}
		name := faker.Name()
		for draws := 1; p.taken(name); draws++ {
			if draws >= maxNameDraws {
				name = fmt.Sprintf("%s %d", name, len(p.order)+1)
				break
			}
			name = faker.Name()
		}
		p.idToName[id] = name
		p.nameToID[name] = id
		p.order = append(p.order, id)
	}
	return p, nil
}

func (p *Pseudonymizer) taken(name string) bool {
	_, ok := p.nameToID[name]
	return ok
}

func citySeed(locationID string) uint64 {
	h := xxhash.Sum64String(locationID)
	if h == 0 {
		// gofakeit treats 0 as "seed randomly"
		h = 1
	}
	return h
}

func cityFor(locationID string) string {
	return gofakeit.New(citySeed(locationID)).City()
}

// Name returns the display name of a real customer id.
func (p *Pseudonymizer) Name(customerID string) (string, bool) {
	name, ok := p.idToName[customerID]
	return name, ok
}

// CustomerID resolves a display name back to the real id.
func (p *Pseudonymizer) CustomerID(name string) (string, bool) {
	id, ok := p.nameToID[name]
	return id, ok
}

// Names lists display names in customer enumeration order.
func (p *Pseudonymizer) Names() []string {
	names := make([]string, len(p.order))
	for i, id := range p.order {
		names[i] = p.idToName[id]
	}
	return names
}

func (p *Pseudonymizer) Len() int { return len(p.order) }

// City returns the fake city of a location id.
func (p *Pseudonymizer) City(locationID string) string {
	return cityFor(locationID)
}

// SegmentDisplay renders "origin_destination" as "fake origin -> fake destination".
func (p *Pseudonymizer) SegmentDisplay(code string) (string, error) {
	origin, destination, err := SplitSegmentCode(code)
	if err != nil {
		return "", err
	}
	return p.City(origin) + " -> " + p.City(destination), nil
}

// SplitSegmentCode splits a composite "origin_destination" code.
func SplitSegmentCode(code string) (string, string, error) {
	parts := strings.Split(code, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSegmentCode, code)
	}
	return parts[0], parts[1], nil
}
