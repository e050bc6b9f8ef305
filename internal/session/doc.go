// Package session coordinates one duplicate scan at a time.
//
// A Coordinator walks Idle -> Locating -> (Building) -> Running -> Parsing
// and ends in Completed, Failed or Cancelled. Only a completed scan replaces
// the result store, so a failed or stopped re-scan keeps earlier results
// visible. Deletions go through the deletion collaborator first and are
// committed to the store only when the file is actually gone.
package session
