package rawplanes

import "strconv"

const greenCode = 'G'

// MapColorNames derives channel names for identifiers 0..count-1.
//
// Only green filters get an instance suffix (G1, G2, ...). Any other code is
// used verbatim, so a descriptor with two 'B' entries yields two "B" names
// and the later plane replaces the earlier one in a ColorPlaneSet.
// count must equal len(desc).
func MapColorNames(count int, desc ColorDescriptor) []ChannelName {
	names := make([]ChannelName, count)
	greenIdx := 1
	for i := 0; i < count; i++ {
		code := desc[i]
		name := string(code)
		if code == greenCode {
			name += strconv.Itoa(greenIdx)
			greenIdx++
		}
		names[i] = ChannelName(name)
	}
	return names
}
