package common

import (
	"path/filepath"
	"sort"
	"strings"

	"fjacquet/card-expenses/internal/models"
)

// SanitizeName makes s safe to use as a file name component. Anything other
// than ASCII letters, digits, '_', '-' and '.' becomes '_', and ".." never
// survives.
func SanitizeName(s string) string {
	sanitized := strings.ReplaceAll(strings.TrimSpace(s), " ", "_")

	var result strings.Builder
	for _, r := range sanitized {
		if (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '_' || r == '-' || r == '.' {
			result.WriteRune(r)
		} else {
			result.WriteRune('_')
		}
	}
	sanitized = result.String()

	for strings.Contains(sanitized, "..") {
		sanitized = strings.ReplaceAll(sanitized, "..", "_")
	}
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_.")

	if sanitized == "" {
		sanitized = "UNKNOWN"
	}
	return sanitized
}

// OutputPath returns <dir>/<statement base name>[_<suffix>].csv.
func OutputPath(dir, statementFile, suffix string) string {
	base := filepath.Base(statementFile)
	name := SanitizeName(strings.TrimSuffix(base, filepath.Ext(base)))
	if suffix != "" {
		name += "_" + SanitizeName(suffix)
	}
	return filepath.Join(dir, name+".csv")
}

// GroupByRepresentative splits transactions by AssignedTo, keeping the
// original order inside each group. Keys are returned sorted.
func GroupByRepresentative(transactions []models.Transaction) ([]string, map[string][]models.Transaction) {
	groups := make(map[string][]models.Transaction)
	for _, tx := range transactions {
		groups[tx.AssignedTo] = append(groups[tx.AssignedTo], tx)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}
