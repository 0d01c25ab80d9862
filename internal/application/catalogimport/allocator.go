package catalogimport

import (
	"fmt"
	"strings"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
)

const maxSlugNameLength = 30

// KeyAllocator hands out unique external ids and product slugs for one run.
// Lookups are set-based; the sets are seeded once from the store.
type KeyAllocator struct {
	mode catalog.ImportMode

	storedIDs map[string]struct{}
	runIDs    map[string]struct{}
	slugs     map[string]struct{}
}

func NewKeyAllocator(keys catalog.ProductKeys, mode catalog.ImportMode) *KeyAllocator {
	a := &KeyAllocator{
		mode:      mode,
		storedIDs: make(map[string]struct{}, len(keys.TmpIDs)),
		runIDs:    make(map[string]struct{}),
		slugs:     make(map[string]struct{}, len(keys.Slugs)),
	}
	for _, id := range keys.TmpIDs {
		a.storedIDs[id] = struct{}{}
	}
	for _, slug := range keys.Slugs {
		a.slugs[slug] = struct{}{}
	}
	return a
}

// AllocateID returns the id to store the row under. update is true only in
// ModeUpdate, on the first occurrence of an id that already exists.
func (a *KeyAllocator) AllocateID(tmpID string) (assigned string, update bool) {
	_, stored := a.storedIDs[tmpID]
	_, seen := a.runIDs[tmpID]

	if a.mode == catalog.ModeUpdate && stored && !seen {
		a.runIDs[tmpID] = struct{}{}
		return tmpID, true
	}

	assigned = tmpID
	for n := 1; a.taken(assigned); n++ {
		assigned = fmt.Sprintf("%s-dup%d", tmpID, n)
	}
	a.runIDs[assigned] = struct{}{}
	return assigned, false
}

// AllocateSlug derives a product slug from name and id and suffixes -N until free.
func (a *KeyAllocator) AllocateSlug(name, tmpID string) string {
	base := BaseProductSlug(name, tmpID)
	slug := base
	for n := 1; ; n++ {
		if _, used := a.slugs[slug]; !used {
			break
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
	a.slugs[slug] = struct{}{}
	return slug
}

func BaseProductSlug(name, tmpID string) string {
	cleanID := catalog.AlphaNumeric(tmpID)
	if cleanID == "" {
		cleanID = "unknown"
	}

	cleanName := catalog.Slugify(name)
	if len(cleanName) > maxSlugNameLength {
		cleanName = cleanName[:maxSlugNameLength]
	}

	slug := catalog.Slugify(cleanName + "-" + cleanID)
	if slug == "" {
		return "product-" + strings.ToLower(cleanID)
	}
	return slug
}

func (a *KeyAllocator) taken(id string) bool {
	if _, ok := a.runIDs[id]; ok {
		return true
	}
	_, ok := a.storedIDs[id]
	return ok
}
