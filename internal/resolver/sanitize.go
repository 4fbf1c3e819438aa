package resolver

import "github.com/microcosm-cc/bluemonday"

// textPolicy strips all markup from platform-sourced strings. Title/Channel/Creator are
// plain text fields end to end; this is defense in depth against a platform API ever
// returning HTML in a field a client later renders unescaped.
var textPolicy = bluemonday.StrictPolicy()

func sanitizeClip(c *Clip) *Clip {
	if c == nil {
		return c
	}
	c.Title = textPolicy.Sanitize(c.Title)
	c.Channel = textPolicy.Sanitize(c.Channel)
	c.Creator = textPolicy.Sanitize(c.Creator)
	return c
}
