package audio

const (
	// CombinedContentType is the tag of a combined artifact
	CombinedContentType = "audio/mpeg"
	// CombinedExt is the file extension of a combined artifact
	CombinedExt = ".mp3"
)

// Combine concatenates raw bytes of the original and the continuation into a new slice.
// Playback of the result relies on the container tolerating raw concatenation
func Combine(original, continuation []byte) []byte {
	res := make([]byte, 0, len(original)+len(continuation))
	res = append(res, original...)
	return append(res, continuation...)
}
