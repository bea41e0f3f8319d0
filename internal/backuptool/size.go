package backuptool

import "strconv"

var sizeUnits = []string{"KB", "MB", "GB", "TB", "PB"}

// HumanFileSize formats a byte count with 1024-based units and one decimal,
// e.g. 1205302 -> "1.1 MB". Counts below 1 KB are printed as whole bytes.
func HumanFileSize(bytes int64) string {
	if bytes < 1024 {
		return strconv.FormatInt(bytes, 10) + " B"
	}

	value := float64(bytes)
	i := -1
	for {
		value /= 1024
		i++
		if value < 1024 || i == len(sizeUnits)-1 {
			break
		}
	}
	return strconv.FormatFloat(value, 'f', 1, 64) + " " + sizeUnits[i]
}
