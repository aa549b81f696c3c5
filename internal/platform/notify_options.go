package platform

// DefaultAppName identifies the sender when Options.AppName is empty.
const DefaultAppName = "Siteplan"

// Urgency ranks a notification. Platforms without urgency levels ignore it.
type Urgency byte

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// Options configures how a notification is displayed on the host platform.
type Options struct {
	AppName string
	// IconPath, when non-empty, points to an image file the notification
	// center should show next to the message.
	IconPath string
	Urgency  Urgency
	// TimeoutMillis of zero uses the platform default.
	TimeoutMillis int32
}

func (o Options) appName() string {
	if o.AppName == "" {
		return DefaultAppName
	}
	return o.AppName
}
