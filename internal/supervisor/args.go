package supervisor

import "strconv"

// ScanArgs are the engine options for one scan.
type ScanArgs struct {
	Directory      string
	MinSize        int64
	FollowSymlinks bool
	// Legacy asks the engine for line output instead of JSON.
	Legacy bool
}

// Args builds the engine argument vector. The directory is always last.
func Args(opts ScanArgs) []string {
	args := make([]string, 0, 4)
	if !opts.Legacy {
		args = append(args, "--json")
	}
	if opts.MinSize > 0 {
		args = append(args, "--minsize="+strconv.FormatInt(opts.MinSize, 10))
	}
	if opts.FollowSymlinks {
		args = append(args, "--follow-symlinks")
	}
	return append(args, opts.Directory)
}
