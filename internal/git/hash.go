package git

// Hash is a Git object ID in hex form.
type Hash string

// ZeroHash marks the absence of a hash.
const ZeroHash Hash = "0000000000000000000000000000000000000000"

func (h Hash) String() string {
	return string(h)
}

// Short returns the abbreviated form of the hash shown to users.
func (h Hash) Short() string {
	const width = 7
	if len(h) <= width {
		return string(h)
	}
	return string(h[:width])
}
