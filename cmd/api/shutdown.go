package main

import (
	"io"

	"go.uber.org/multierr"
)

// closeAll closes every connection and reports all failures together.
func closeAll(closers ...io.Closer) error {
	var err error
	for _, c := range closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
