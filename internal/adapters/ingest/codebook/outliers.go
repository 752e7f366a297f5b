package codebook

import (
	"slices"
	"strconv"
	"strings"
)

// SuspectedOutliers returns labeled answers that look like sentinel codes but are not in the drop list
// single-digit books flag codes past the first gap of more than two; multi-digit books flag
// repeated-digit codes (77, 999) above every regular code
func (c *Codebook) SuspectedOutliers(code string) map[string]string {
	e, ok := c.Lookup(code)
	if !ok {
		return nil
	}
	if out := singleDigitOutliers(e.Labels); len(out) > 0 {
		return out
	}
	return repeatedDigitOutliers(e.Labels)
}

func singleDigitOutliers(labels map[string]string) map[string]string {
	var keys []int
	for k := range labels {
		if len(k) > 1 {
			return nil
		}
		if isDigits(k) {
			keys = append(keys, int(k[0]-'0'))
		}
	}
	slices.Sort(keys)
	if len(keys) <= 2 {
		return nil
	}
	start := -1
	for i := 1; i < len(keys); i++ {
		if keys[i]-keys[i-1] > 2 {
			start = max(6, keys[i])
			break
		}
	}
	if start < 0 {
		return nil
	}
	out := map[string]string{}
	for k, label := range labels {
		if isDigits(k) && int(k[0]-'0') >= start && !dropped(label) {
			out[k] = label
		}
	}
	return out
}

func repeatedDigitOutliers(labels map[string]string) map[string]string {
	if len(labels) < 3 {
		return nil
	}
	highest := 0
	for k := range labels {
		if isDigits(k) && !repeated(k) {
			if n, err := strconv.Atoi(k); err == nil && n > highest {
				highest = n
			}
		}
	}
	out := map[string]string{}
	for k, label := range labels {
		if len(k) < 2 || !repeated(k) || k == label || dropped(label) {
			continue
		}
		if isDigits(k) {
			if n, err := strconv.Atoi(k); err != nil || n <= max(11, highest) {
				continue
			}
		}
		out[k] = label
	}
	return out
}

func repeated(s string) bool {
	return s != "" && strings.Count(s, s[:1]) == len(s)
}
