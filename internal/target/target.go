// Package target defines the applications checked by storecheck and how
// their UI presence is verified after installation.
package target

// LocatorKind selects the lookup strategy a UI-automation call uses.
type LocatorKind string

const (
	AccessibilityID LocatorKind = "accessibility_id"
	ClassName       LocatorKind = "class_name"
	XPath           LocatorKind = "xpath"
)

// placeholderClass marks targets whose real post-launch locator has not
// been captured yet. Such targets get a manual-review screenshot instead
// of a hard UI assertion.
const placeholderClass = "android.widget.TextView"

// Locator identifies how a UI element is found on screen.
type Locator struct {
	Kind  LocatorKind `yaml:"kind"`
	Value string      `yaml:"value"`
}

// Placeholder reports whether the locator is unset or still the generic
// placeholder, meaning the target cannot be asserted on.
func (l Locator) Placeholder() bool {
	return l.Value == "" || l.Value == placeholderClass
}

// Target describes one application to uninstall, reinstall from the
// store, and verify. Targets are immutable once loaded.
type Target struct {
	// Package is the Android application id, e.g. "fi.sbweather.app".
	Package string `yaml:"package"`
	// Name is the display name used in store search and reporting.
	Name string `yaml:"name"`
	// Locator is the UI element expected after the app launches.
	Locator Locator `yaml:"locator"`
}

// Defaults returns the built-in target list used when no config file
// overrides it.
func Defaults() []Target {
	return []Target{
		{
			Package: "fi.sbweather.app",
			Name:    "Sebitti Sää",
			Locator: Locator{Kind: AccessibilityID, Value: "KOTI\nTab 1 of 3"},
		},
		{
			Package: "fi.reportronic.app",
			Name:    "Reportronic",
			Locator: Locator{Kind: XPath, Value: "//android.widget.Button[@text='Login with QR code']"},
		},
		{
			Package: "com.feelment",
			Name:    "Feelment",
			Locator: Locator{Kind: AccessibilityID, Value: "Kirjaudu sisään"},
		},
		{
			Package: "com.coubonga.app",
			Name:    "Coubonga",
			Locator: Locator{Kind: AccessibilityID, Value: "PUHELINNUMERO"},
		},
		{
			Package: "com.iloq.smartlock.s50",
			Name:    "iLOQ",
			Locator: Locator{Kind: XPath, Value: "//android.widget.TextView[@resource-id='android:id/message']"},
		},
	}
}

// Find returns the target with the given package id from ts, or false.
func Find(ts []Target, pkg string) (Target, bool) {
	for _, t := range ts {
		if t.Package == pkg {
			return t, true
		}
	}
	return Target{}, false
}
