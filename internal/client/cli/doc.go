// Package cli implements the filedrop uploader command.
//
// The uploader takes file paths from the command line, feeds them to an
// upload queue and reports progress until every file is either stored on
// the server or has failed. On a terminal the progress is redrawn in place;
// otherwise one line is printed per finished file. A summary follows, and
// Run returns ErrUploadsFailed when anything did not make it.
package cli
