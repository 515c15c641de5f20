package sqlpager

const (
	MaxSize     = 100
	DefaultSize = 10
	FirstPage   = 1
)

// IsNormalizedSizeMax clamps a page size to (0, maxSize]. The boolean is true
// when size was already acceptable.
func IsNormalizedSizeMax(size int, maxSize int) (int, bool) {
	if size <= 0 {
		return DefaultSize, false
	} else if size > maxSize {
		return maxSize, false
	}

	return size, true
}

func NormalizeSizeMax(size int, maxSize int) int {
	ret, _ := IsNormalizedSizeMax(size, maxSize)
	return ret
}

func NormalizeSize(size int) int {
	return NormalizeSizeMax(size, MaxSize)
}

// NormalizePage maps non-positive page numbers to FirstPage.
func NormalizePage(page int) int {
	if page < FirstPage {
		return FirstPage
	}

	return page
}
