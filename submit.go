package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/diamondburned/travelboard/locator"
	"github.com/diamondburned/travelboard/postform"
	"github.com/diamondburned/travelboard/travelboard"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/ssh/terminal"
)

// tokenEnv is read for the auth token if --token isn't given.
const tokenEnv = "TRAVELBOARD_TOKEN"

type submitFlags struct {
	fields   map[travelboard.Field]*string
	image    string
	lat, lng string
	token    string
}

func parseSubmitFlags(args []string) (*submitFlags, *pflag.FlagSet, error) {
	fs := pflag.NewFlagSet("submit", pflag.ContinueOnError)

	f := &submitFlags{
		fields: map[travelboard.Field]*string{},
	}

	for _, field := range travelboard.AllFields() {
		f.fields[field] = fs.String(string(field), "", "Post "+string(field))
	}

	fs.StringVarP(&f.image, "image", "i", "", "Path to the image to attach")
	fs.StringVar(&f.lat, "lat", "", "Latitude of the place")
	fs.StringVar(&f.lng, "lng", "", "Longitude of the place")
	fs.StringVarP(&f.token, "token", "t", "", "Auth token, else $"+tokenEnv+" or a prompt")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}

	return f, fs, nil
}

// apply sets the fields that were given on the command line. Country and
// category keep the first reference entry if not given.
func (f *submitFlags) apply(fs *pflag.FlagSet, form *postform.Form) {
	for field, v := range f.fields {
		if fs.Changed(string(field)) {
			form.Change(field, *v)
		}
	}
}

func (f *submitFlags) locator() (locator.Source, error) {
	if f.lat == "" && f.lng == "" {
		return nil, nil
	}

	c, err := locator.ParseCoordinates(f.lat, f.lng)
	if err != nil {
		return nil, err
	}

	return locator.Static(c), nil
}

func (f *submitFlags) readToken() (string, error) {
	if f.token != "" {
		return f.token, nil
	}

	if t := os.Getenv(tokenEnv); t != "" {
		return t, nil
	}

	if !terminal.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}

	fmt.Fprint(os.Stderr, "Enter your auth token: ")

	b, err := terminal.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", errors.Wrap(err, "Failed to read token")
	}

	return strings.TrimSpace(string(b)), nil
}

func submit(cfg Config, log zerolog.Logger, args []string) error {
	flags, fs, err := parseSubmitFlags(args)
	if err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	deps, err := newForms(cfg, &log)
	if err != nil {
		return err
	}

	if deps.Locator, err = flags.locator(); err != nil {
		return err
	}

	form := postform.New(deps)
	defer form.Close()

	ctx := context.Background()

	if err := form.Mount(ctx); err != nil {
		return err
	}

	flags.apply(fs, form)

	if flags.image != "" {
		file, err := postform.DiskFile(flags.image)
		if err != nil {
			return err
		}

		form.Select(file)
		form.Wait()

		if s := form.State(); s.ImageErr != nil {
			return errors.Wrapf(s.ImageErr, "Failed to encode %s", s.FileName)
		}
	}

	token, err := flags.readToken()
	if err != nil {
		return err
	}

	if err := form.Submit(ctx, token); err != nil {
		return err
	}

	s := form.State()
	fmt.Printf("Posted %q in %s, %s.\n", s.Draft.Title, s.Draft.Place, s.Draft.Country)

	return nil
}
