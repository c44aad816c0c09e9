// Package layout assigns collision-free local directory names for a flat
// target layout. The assignment is a pure function of the full resolution
// result: re-running it on an unchanged record set always yields the same
// mapping, which is what makes re-synchronization idempotent.
package layout

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AeyeOps/mgit-sub001/provider"
)

// Assign maps each record's identity key to a unique directory name.
//
// Records are grouped by case-insensitive repository name. A singleton group
// keeps the bare name. Colliding names get the organization appended
// (name_org); when the organization names inside a group are themselves
// identical across backends, the backend name is appended as a further
// suffix (name_org_backend). A final pass numbers any residual clash
// between a derived name and another group's literal name.
//
// The full mapping is computed before any filesystem mutation happens, so
// concurrent sync workers never derive names independently.
func Assign(records []provider.Record) map[string]string {
	assigned := make(map[string]string, len(records))

	byName := groupBy(records, func(r provider.Record) string {
		return strings.ToLower(r.Name)
	})

	for _, group := range byName {
		if len(group) == 1 {
			r := group[0]
			assigned[r.Key()] = sanitize(r.Name)
			continue
		}

		byOrg := groupBy(group, func(r provider.Record) string {
			return strings.ToLower(r.Name) + "\x00" + strings.ToLower(r.Org)
		})
		for _, orgGroup := range byOrg {
			if len(orgGroup) == 1 {
				r := orgGroup[0]
				assigned[r.Key()] = sanitize(r.Name + "_" + r.Org)
				continue
			}

			byBackend := groupBy(orgGroup, func(r provider.Record) string {
				return strings.ToLower(r.Backend)
			})
			for _, backendGroup := range byBackend {
				if len(backendGroup) == 1 {
					r := backendGroup[0]
					assigned[r.Key()] = sanitize(r.Name + "_" + r.Org + "_" + r.Backend)
					continue
				}
				// Same name, org, and backend: only the project can
				// still tell them apart.
				for _, r := range backendGroup {
					assigned[r.Key()] = sanitize(r.Name + "_" + r.Org + "_" + r.Backend + "_" + r.Project)
				}
			}
		}
	}

	dedupeAcrossGroups(assigned)
	return assigned
}

// dedupeAcrossGroups closes the uniqueness invariant when a derived
// suffixed name happens to equal another repository's literal name (a repo
// named "tool_acme" next to a "tool" group containing org "acme"). Records
// are visited in identity-key order so the numbering is deterministic.
func dedupeAcrossGroups(assigned map[string]string) {
	keys := make([]string, 0, len(assigned))
	for key := range assigned {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	used := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		name := assigned[key]
		if _, taken := used[strings.ToLower(name)]; taken {
			for i := 2; ; i++ {
				candidate := fmt.Sprintf("%s_%d", name, i)
				if _, t := used[strings.ToLower(candidate)]; !t {
					name = candidate
					break
				}
			}
			assigned[key] = name
		}
		used[strings.ToLower(name)] = struct{}{}
	}
}

// groupBy buckets records by a derived key, preserving input order within
// each bucket.
func groupBy(records []provider.Record, key func(provider.Record) string) map[string][]provider.Record {
	groups := make(map[string][]provider.Record)
	for _, r := range records {
		k := key(r)
		groups[k] = append(groups[k], r)
	}
	return groups
}

// sanitize replaces characters that are unsafe in a directory name.
func sanitize(name string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", " ", "-", ":", "-")
	return replacer.Replace(name)
}
