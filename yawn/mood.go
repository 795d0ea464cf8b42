package yawn

import "math"

type Mood string

const (
	Hyperactive    Mood = "Hyperactive"
	MildlySleepy   Mood = "MildlySleepy"
	Grumpy         Mood = "Grumpy"
	ZombieOverlord Mood = "ZombieOverlord"
)

const (
	// AlertThreshold is the yawn count above which every new yawn raises an alert.
	AlertThreshold = 5
	// AlertMessage is the text of the high severity notification.
	AlertMessage = "You look very sleepy! Please go to sleep and rest well."

	sleepinessFullCount = 10
)

var moodLabels = map[Mood]string{
	Hyperactive:    "Hyperactive Unicorn",
	MildlySleepy:   "Mildly Sleepy Sloth",
	Grumpy:         "Grumpy Cat",
	ZombieOverlord: "Zombie Overlord",
}

var moodColors = map[Mood]string{
	Hyperactive:    "#32CD32",
	MildlySleepy:   "#6495ED",
	Grumpy:         "#555555",
	ZombieOverlord: "#8B0000",
}

func (m Mood) Label() string {
	return moodLabels[m]
}

func (m Mood) Color() string {
	return moodColors[m]
}

// MoodFor maps a yawn count to a mood band. Bands are inclusive on their upper end.
func MoodFor(count int) Mood {
	switch {
	case count <= 0:
		return Hyperactive
	case count <= 3:
		return MildlySleepy
	case count <= 6:
		return Grumpy
	default:
		return ZombieOverlord
	}
}

// SleepinessPercent maps a yawn count onto 0..100, full at ten yawns.
func SleepinessPercent(count int) float64 {
	if count <= 0 {
		return 0
	}
	return math.Min(float64(count)*100/sleepinessFullCount, 100)
}

func SleepinessMessage(percent float64) string {
	switch {
	case percent < 30:
		return "wide awake"
	case percent < 60:
		return "getting drowsy"
	case percent < 90:
		return "very sleepy"
	default:
		return "almost asleep"
	}
}

func ShouldAlert(count int) bool {
	return shouldAlertAbove(count, AlertThreshold)
}

func shouldAlertAbove(count, threshold int) bool {
	return count > threshold
}
