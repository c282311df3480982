package service

import (
	"sort"

	"github.com/lalith-99/lingomatch/internal/models"
)

// IsEligible reports whether a and b may be matched: two different users,
// both set up, neither blocking the other, each speaking what the other
// is learning. It is symmetric.
func IsEligible(a, b *models.Profile) bool {
	if a == nil || b == nil || a.ID == b.ID {
		return false
	}
	if !a.ProfileSetupComplete || !b.ProfileSetupComplete {
		return false
	}
	if a.HasBlocked(b.ID) || b.HasBlocked(a.ID) {
		return false
	}
	return a.NativeLanguage == b.TargetLanguage && a.TargetLanguage == b.NativeLanguage
}

// FilterPartners keeps the candidates eligible for me, ordered by id.
func FilterPartners(me *models.Profile, candidates []models.Profile) []models.Profile {
	out := make([]models.Profile, 0, len(candidates))
	for i := range candidates {
		if IsEligible(me, &candidates[i]) {
			out = append(out, candidates[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
