package cli

type PrefsShowCmd struct{}

func (c *PrefsShowCmd) Run(ctx *Context) error {
	prefs, err := ctx.Engine().GetPreferences(ctx.Ctx(), ctx.Owner)
	if err != nil {
		return err
	}
	ctx.printf("Owner:         %s\n", prefs.OwnerID)
	ctx.printf("Timezone:      %s\n", prefs.Timezone)
	ctx.printf("Notifications: %t\n", prefs.NotificationsEnabled)
	ctx.printf("Language:      %s\n", prefs.Language)
	return nil
}

type PrefsSetCmd struct {
	Timezone      *string `help:"IANA timezone, e.g. Asia/Dhaka."`
	Notifications string  `enum:"on,off,keep" default:"keep" help:"Turn reminders on or off."`
	Language      *string `help:"Language code passed to message senders."`
}

func (c *PrefsSetCmd) Run(ctx *Context) error {
	prefs, err := ctx.Engine().GetPreferences(ctx.Ctx(), ctx.Owner)
	if err != nil {
		return err
	}
	if c.Timezone != nil {
		prefs.Timezone = *c.Timezone
	}
	if c.Notifications != "keep" {
		prefs.NotificationsEnabled = c.Notifications == "on"
	}
	if c.Language != nil {
		prefs.Language = *c.Language
	}
	if _, err := ctx.Engine().SetPreferences(ctx.Ctx(), prefs); err != nil {
		return err
	}
	ctx.println("✓ Preferences saved")
	return nil
}
