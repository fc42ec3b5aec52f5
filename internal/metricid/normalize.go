package metricid

import "strings"

// Normalize canonicalizes distance-metric names and their common aliases to a
// lowercase hyphenated id. Unknown names are returned normalized but otherwise
// unchanged.
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.ReplaceAll(normalized, ".", "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return ""
	}
	if canonical, ok := normalizeKnownAlias(normalized); ok {
		return canonical
	}
	return normalized
}

func normalizeKnownAlias(normalized string) (string, bool) {
	for _, candidate := range aliasCandidates(normalized) {
		if canonical, ok := canonicalMetricName(candidate); ok {
			return canonical, true
		}
	}
	return "", false
}

func aliasCandidates(normalized string) []string {
	candidate := normalized
	for _, prefix := range []string{"abc-", "metric-", "stats-"} {
		candidate = strings.TrimPrefix(candidate, prefix)
	}
	candidate = strings.Trim(candidate, "-")

	candidates := []string{normalized}
	if candidate != "" && candidate != normalized {
		candidates = append(candidates, candidate)
	}

	trimmedCandidate := trimDistanceSuffix(candidate)
	if trimmedCandidate != "" && trimmedCandidate != candidate {
		candidates = append(candidates, trimmedCandidate)
	}
	return candidates
}

func trimDistanceSuffix(value string) string {
	for _, suffix := range []string{"-distance", "-difference", "-diff", "-divergence", "-statistic"} {
		if strings.HasSuffix(value, suffix) {
			return strings.TrimSuffix(value, suffix)
		}
	}
	for _, suffix := range []string{"distance", "difference", "diff", "divergence"} {
		if strings.HasSuffix(value, suffix) && !strings.Contains(value, "-") && value != suffix {
			return strings.TrimSuffix(value, suffix)
		}
	}
	return value
}

func canonicalMetricName(alias string) (string, bool) {
	switch alias {
	case "wasserstein", "emd", "earth-mover", "earth-movers", "w1":
		return "wasserstein", true
	case "kolmogorov-smirnov", "ks":
		return "kolmogorov-smirnov", true
	case "hellinger":
		return "hellinger", true
	case "jensen-shannon", "js", "jsd":
		return "jensen-shannon", true
	case "mean":
		return "mean", true
	case "variance", "var":
		return "variance", true
	case "entropy":
		return "entropy", true
	case "frequency", "freq":
		return "frequency", true
	}

	compact := strings.ReplaceAll(alias, "-", "")
	switch compact {
	case "wasserstein", "earthmover", "earthmovers":
		return "wasserstein", true
	case "kolmogorovsmirnov", "ks":
		return "kolmogorov-smirnov", true
	case "hellinger":
		return "hellinger", true
	case "jensenshannon", "js", "jsd":
		return "jensen-shannon", true
	case "mean":
		return "mean", true
	case "variance":
		return "variance", true
	case "entropy":
		return "entropy", true
	case "frequency":
		return "frequency", true
	default:
		return "", false
	}
}
