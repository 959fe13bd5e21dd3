package ensure

import "fmt"

// ErrNoEligibleVersion is returned when the registry reports no listed,
// non-prerelease version of the package.
type ErrNoEligibleVersion struct {
	ID string
}

func (e *ErrNoEligibleVersion) Error() string {
	return fmt.Sprintf("no listed stable version available for package %s", e.ID)
}

// ErrDownloadFailed is returned when the primary, cache-backed download path
// fails. It triggers the direct-download fallback and is only surfaced to
// callers wrapped inside ErrInstallFailed.
type ErrDownloadFailed struct {
	ID      string
	Version string
	Err     error
}

func (e *ErrDownloadFailed) Error() string {
	return fmt.Sprintf("failed to download package %s/%s: %v", e.ID, e.Version, e.Err)
}

func (e *ErrDownloadFailed) Unwrap() error {
	return e.Err
}

// ErrInstallFailed is returned when both the primary and the fallback
// download paths failed and the package could not be installed.
type ErrInstallFailed struct {
	ID       string
	Version  string
	Primary  error
	Fallback error
}

func (e *ErrInstallFailed) Error() string {
	return fmt.Sprintf("failed to install package %s/%s: primary: %v; fallback: %v",
		e.ID, e.Version, e.Primary, e.Fallback)
}

func (e *ErrInstallFailed) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}
