package profiles

// createProfileRequest represents the request to create a new profile
type createProfileRequest struct {
	Name     string `json:"name" example:"Alice" minLength:"1"`            // Display name
	Timezone string `json:"timezone,omitempty" example:"America/New_York"` // Optional IANA timezone, defaults to America/New_York
}

// updateProfileRequest is a partial update; absent fields are left untouched.
type updateProfileRequest struct {
	Name     *string `json:"name,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
}
