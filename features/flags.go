package features

import "github.com/crossplane/crossplane-runtime/pkg/feature"

const (
	// RegistrationFlow lets users without a workgroup create their own
	// profile from the dashboard.
	RegistrationFlow feature.Flag = "RegistrationFlow"
)
