package extraction

import (
	"fmt"
	"strings"
	"time"
)

// BuildPrompt renders the extraction instructions for posterText. now supplies
// the default year for dates printed without one.
func BuildPrompt(posterText string, now time.Time) string {
	year := now.Year()

	var b strings.Builder
	b.WriteString("You structure event posters.\n")
	b.WriteString("Return strictly one JSON object with the fields:\n")
	b.WriteString(strings.Join(Fields, ", "))
	b.WriteString("\n")
	b.WriteString("Use only the information in the text below. Use null when a field is not present.\n")
	fmt.Fprintf(&b, "Write the date as DD.MM.YYYY, for example 19 March becomes 19.03.%d. If the year is missing, use the current year %d.\n", year, year)
	b.WriteString("Write age_limit as a bare non-negative integer without the plus sign, so 12+ becomes 12.\n")
	b.WriteString("\nPoster text:\n\"\"\"")
	b.WriteString(posterText)
	b.WriteString("\"\"\"\n")

	return b.String()
}
