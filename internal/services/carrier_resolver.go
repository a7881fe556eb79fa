package services

import (
	"context"
	"fmt"
	"strings"

	"dispatch-worklist-service/internal/domain"
	"dispatch-worklist-service/internal/ports"
	"dispatch-worklist-service/internal/textnorm"
)

// CarrierResolver matches an extracted carrier name against the reference
// table and disambiguates duplicates.
type CarrierResolver struct {
	repo ports.CarrierRepository
}

func NewCarrierResolver(repo ports.CarrierRepository) *CarrierResolver {
	return &CarrierResolver{repo: repo}
}

// Resolve looks up a normalized carrier name. A nil record with a nil error
// means "not found" — an expected outcome, not a failure.
//
// When several table entries match the substring, disambiguation runs in a
// fixed order: an entry whose name appears verbatim in the delivery note
// wins; then an entry whose scheduled-departure text appears in the note's
// time hint; otherwise the first match in table order. The last rule is an
// explicit default, not an accident: table order is the operators' own
// priority order.
func (r *CarrierResolver) Resolve(
	ctx context.Context,
	normalizedName string,
	note string,
	timeHint string,
) (*domain.CarrierRecord, error) {
	if strings.TrimSpace(normalizedName) == "" {
		return nil, nil
	}

	matches, err := r.repo.FindByName(ctx, normalizedName)
	if err != nil {
		return nil, fmt.Errorf("resolve carrier %q: %w", normalizedName, err)
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	}

	// Longest contained name wins, so "Anh Khoa Limousine" is not shadowed
	// by the shorter "Anh Khoa" appearing inside it.
	foldedNote := textnorm.Fold(note)
	best := -1
	for i := range matches {
		name := textnorm.Fold(matches[i].Name)
		if name == "" || !strings.Contains(foldedNote, name) {
			continue
		}
		if best < 0 || len(name) > len(textnorm.Fold(matches[best].Name)) {
			best = i
		}
	}
	if best >= 0 {
		return &matches[best], nil
	}

	foldedHint := textnorm.Fold(timeHint)
	if foldedHint != "" {
		for i := range matches {
			dep := textnorm.Fold(matches[i].DepartureText)
			if dep != "" && strings.Contains(foldedHint, dep) {
				return &matches[i], nil
			}
		}
	}

	return &matches[0], nil
}
