package notifications

import (
	"strconv"
	"strings"
	"time"
)

// FormatExpiry renders d in Russian for the "link expires in" line, e.g.
// "1 час", "24 часа", "1 час 30 минут", "3 дня". Seconds round up to a minute.
func FormatExpiry(d time.Duration) string {
	if d <= 0 {
		return plural(0, "минута", "минуты", "минут")
	}
	minutes := int((d + time.Minute - 1) / time.Minute)

	// Two or more whole days are shown in days.
	if minutes%(24*60) == 0 && minutes >= 2*24*60 {
		return plural(minutes/(24*60), "день", "дня", "дней")
	}

	hours, rest := minutes/60, minutes%60
	var parts []string
	if hours > 0 {
		parts = append(parts, plural(hours, "час", "часа", "часов"))
	}
	if rest > 0 {
		parts = append(parts, plural(rest, "минута", "минуты", "минут"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, one, few, many string) string {
	word := many
	switch mod10, mod100 := n%10, n%100; {
	case mod10 == 1 && mod100 != 11:
		word = one
	case mod10 >= 2 && mod10 <= 4 && (mod100 < 12 || mod100 > 14):
		word = few
	}
	return strconv.Itoa(n) + " " + word
}
