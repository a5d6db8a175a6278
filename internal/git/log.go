package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CommitInfo holds the metadata of a single commit.
type CommitInfo struct {
	// Hash is the commit's object ID.
	Hash Hash

	// Author is the name of the commit's author.
	Author string

	// Email is the email of the commit's author.
	Email string

	// Time is the author timestamp, at second precision.
	Time time.Time

	// Subject is the first line of the commit message.
	Subject string

	// Body is the rest of the commit message,
	// with leading and trailing whitespace removed.
	Body string
}

// _logFormat emits one NUL-terminated record per commit,
// with unit separators between the fields.
const _logFormat = "--format=%H%x1f%an%x1f%ae%x1f%at%x1f%s%x1f%b%x00"

// CommitsBetween lists the commits reachable from upper but not from lower,
// oldest first.
func (r *Repository) CommitsBetween(ctx context.Context, lower, upper string) ([]CommitInfo, error) {
	out, err := r.git(ctx,
		"log", "--reverse", _logFormat, lower+".."+upper,
	).Output(r.exec)
	if err != nil {
		return nil, fmt.Errorf("log %v..%v: %w", lower, upper, err)
	}

	var commits []CommitInfo
	for rec := range splitRecords(out) {
		info, err := parseCommitRecord(rec)
		if err != nil {
			r.log.Warn("Skipping malformed log record", "err", err)
			continue
		}
		commits = append(commits, info)
	}
	return commits, nil
}

// RecentCommits reports the hashes of the n most recent commits
// at HEAD, newest first.
func (r *Repository) RecentCommits(ctx context.Context, n int) ([]Hash, error) {
	out, err := r.git(ctx,
		"log", "-n", strconv.Itoa(n), "--format=%H",
	).Output(r.exec)
	if err != nil {
		return nil, fmt.Errorf("log -n %d: %w", n, err)
	}

	var hashes []Hash
	for line := range splitLines(out) {
		hashes = append(hashes, Hash(line))
	}
	return hashes, nil
}

func parseCommitRecord(rec string) (CommitInfo, error) {
	fields := strings.Split(strings.TrimPrefix(rec, "\n"), "\x1f")
	if len(fields) != 6 {
		return CommitInfo{}, fmt.Errorf("want 6 fields, got %d", len(fields))
	}

	epoch, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("parse author time %q: %w", fields[3], err)
	}

	return CommitInfo{
		Hash:    Hash(fields[0]),
		Author:  fields[1],
		Email:   fields[2],
		Time:    time.Unix(epoch, 0).UTC(),
		Subject: fields[4],
		Body:    strings.TrimSpace(fields[5]),
	}, nil
}
