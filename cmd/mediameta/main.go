// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

// Command mediameta prints the EXIF or track metadata found in the given
// file paths: a "path (format)" line per file, then one "name: value" line
// per EXIF entry (prefixed by its IFD, unknown tags shown as hex numbers)
// or per track-info tag.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bep/mediameta"
	"github.com/bep/mediameta/exif"
)

var log = logrus.New()

func main() {
	var verbose bool

	root := &cobra.Command{
		Use:   "mediameta [files...]",
		Short: "Print EXIF and track metadata from images and videos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			for _, path := range args {
				if err := printFile(path); err != nil {
					log.WithError(err).WithField("file", path).Error("failed to parse")
				}
			}
			return nil
		},
	}
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func printFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	log.WithField("file", path).Debug("sniffing and parsing")

	res, err := mediameta.Parse(f, mediameta.Options{})
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", path, res.Format)
	switch {
	case res.Exif != nil:
		printExif(res.Exif)
	case res.Tracks != nil:
		for tag, value := range res.Tracks {
			fmt.Printf("  %s: %s\n", tag, value)
		}
	}
	return nil
}

func printExif(it *exif.ExifIter) {
	for it.Next() {
		e := it.Entry()
		name := exif.NameFor(e.IFD, e.Tag)
		if name == "" {
			name = fmt.Sprintf("0x%04X", e.Tag)
		}
		fmt.Printf("  [%s] %s: %v\n", e.IFD, name, describe(e.Value))
	}
	if err := it.Err(); err != nil {
		log.WithError(err).Debug("iteration ended early")
	}
}

func describe(v exif.EntryValue) any {
	switch {
	case v.Ascii != "":
		return v.Ascii
	case len(v.UnsignedInts) > 0:
		return v.UnsignedInts
	case len(v.SignedInts) > 0:
		return v.SignedInts
	case len(v.UnsignedRationals) > 0:
		return v.UnsignedRationals
	case len(v.SignedRationals) > 0:
		return v.SignedRationals
	case len(v.Floats) > 0:
		return v.Floats
	default:
		return v.Bytes
	}
}
