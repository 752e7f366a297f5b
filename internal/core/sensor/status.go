package sensor

import "fmt"

// Status is the unified per-epoch wear status shared by both generations
type Status int8

const (
	// Missing means no reading was recorded
	Missing Status = iota
	// WakeWear is device worn while awake
	WakeWear
	// SleepWear is device worn while asleep
	SleepWear
	// NonWear is device not worn
	NonWear
	// Unknown covers codes outside the generation vocabulary
	Unknown
)

func (s Status) String() string {
	switch s {
	case Missing:
		return "missing"
	case WakeWear:
		return "wake_wear"
	case SleepWear:
		return "sleep_wear"
	case NonWear:
		return "non_wear"
	case Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("status(%d)", int8(s))
	}
}

// Gen2003 raw codes, derived per epoch by the extractor
const (
	RawNoReading = 0
	RawWorn      = 1
	RawNotWorn   = 2
)

var vocab = map[Generation]map[int]Status{
	Gen2003: {
		RawNoReading: Missing,
		RawWorn:      WakeWear,
		RawNotWorn:   NonWear,
	},
	// PAXPREDM: 1 wake wear, 2 sleep wear, 3 non-wear, 4 unknown, 0 not recorded
	Gen2011: {
		0: Missing,
		1: WakeWear,
		2: SleepWear,
		3: NonWear,
		4: Unknown,
	},
}

// Encode maps a raw status code of gen onto the unified vocabulary
// it is total: codes outside the table map to Unknown
func Encode(gen Generation, raw int) Status {
	if s, ok := vocab[gen][raw]; ok {
		return s
	}
	return Unknown
}

// Vocabulary returns the representable raw codes of gen in ascending order
func Vocabulary(gen Generation) []int {
	m := vocab[gen]
	out := make([]int, 0, len(m))
	for code := 0; len(out) < len(m); code++ {
		if _, ok := m[code]; ok {
			out = append(out, code)
		}
	}
	return out
}
