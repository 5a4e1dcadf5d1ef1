package domain

import "fmt"

type Priority int

func (p Priority) String() string {
	return p.GetPriorityName()
}

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
	PriorityUrgent Priority = 4
)

var Priorities = []Priority{
	PriorityLow,
	PriorityMedium,
	PriorityHigh,
	PriorityUrgent,
}

func (p Priority) GetPriorityName() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	case PriorityUrgent:
		return "Urgent"
	default:
		return "Unknown"
	}
}

// PriorityNames returns the display names in ascending urgency.
func PriorityNames() []string {
	names := make([]string, 0, len(Priorities))
	for _, p := range Priorities {
		names = append(names, p.GetPriorityName())
	}
	return names
}

func ParsePriority(name string) (Priority, error) {
	for _, p := range Priorities {
		if p.GetPriorityName() == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", name)
}
