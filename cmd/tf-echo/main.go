// tf-echo loads transform batches into a buffer and prints lookups from it.
//
// Input is newline-delimited JSON, one {"static":bool,"transforms":[...]}
// batch per line, or a session replayed from the recording database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/tfbuffer/internal/config"
	"github.com/banshee-data/tfbuffer/internal/security"
	"github.com/banshee-data/tfbuffer/internal/tf"
	"github.com/banshee-data/tfbuffer/internal/tf/msg"
	"github.com/banshee-data/tfbuffer/internal/tfdb"
	"github.com/banshee-data/tfbuffer/internal/tfplot"
	"github.com/banshee-data/tfbuffer/internal/timeutil"
	"github.com/banshee-data/tfbuffer/internal/version"
)

type options struct {
	configPath string
	input      string
	dbPath     string
	replay     string
	sessions   bool
	record     string

	source     string
	target     string
	at         float64
	fixed      string
	sourceTime float64
	wait       bool

	frames bool
	plot   string

	version bool
}

func parseFlags(args []string) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("tf-echo", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "path to JSON config (optional)")
	fs.StringVar(&o.input, "input", "", "newline-delimited JSON batches; '-' reads stdin")
	fs.StringVar(&o.dbPath, "db", "", "recording database (default from config)")
	fs.StringVar(&o.replay, "replay", "", "session id to replay from the recording database")
	fs.BoolVar(&o.sessions, "sessions", false, "list recorded sessions and exit")
	fs.StringVar(&o.record, "record", "", "record input batches into a new session with this label")
	fs.StringVar(&o.source, "source", "", "frame the result is expressed in")
	fs.StringVar(&o.target, "target", "", "frame to look up")
	fs.Float64Var(&o.at, "time", -1, "lookup time in seconds; negative means the newest input stamp")
	fs.StringVar(&o.fixed, "fixed", "", "fixed frame for a time travel lookup")
	fs.Float64Var(&o.sourceTime, "source-time", -1, "source time in seconds for a time travel lookup")
	fs.BoolVar(&o.wait, "wait", false, "wait up to wait_timeout for the lookup to become available")
	fs.BoolVar(&o.frames, "frames", false, "print the frame relationships as YAML")
	fs.StringVar(&o.plot, "plot", "", "write the target's trajectory in source to this PNG")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if o.fixed != "" && o.sourceTime < 0 {
		return nil, errors.New("-fixed requires -source-time")
	}
	if o.fixed != "" && o.wait {
		return nil, errors.New("-wait does not apply to time travel lookups with -fixed")
	}
	if (o.source == "") != (o.target == "") {
		return nil, errors.New("-source and -target must be given together")
	}
	if o.plot != "" && o.source == "" {
		return nil, errors.New("-plot requires -source and -target")
	}
	if o.record != "" && o.input == "" {
		return nil, errors.New("-record requires -input")
	}
	return o, nil
}

func main() {
	log.SetFlags(0)
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
	if err := run(context.Background(), o, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, o *options, stdin io.Reader, stdout io.Writer) error {
	if o.version {
		fmt.Fprintln(stdout, version.String("tf-echo"))
		return nil
	}

	cfg := config.Defaults()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return err
		}
	}

	var db *tfdb.DB
	if o.sessions || o.replay != "" || o.record != "" {
		dbPath := o.dbPath
		if dbPath == "" {
			dbPath = cfg.GetDBPath()
		}
		if err := security.ValidateOutputPath(dbPath); err != nil {
			return err
		}
		var err error
		if db, err = tfdb.Open(dbPath); err != nil {
			return err
		}
		defer db.Close()
	}

	if o.sessions {
		return printSessions(db, stdout)
	}

	buf := tf.NewLockedBuffer(
		tf.NewBuffer(tf.WithCacheCapacity(cfg.GetCacheCapacity())),
		timeutil.RealClock{},
		cfg.GetWaitPollInterval(),
	)
	in := &ingester{buf: buf}

	if o.replay != "" {
		n, err := db.Replay(o.replay, in)
		if err != nil {
			return err
		}
		log.Printf("replayed %d transforms from session %s", n, o.replay)
	}

	if o.input != "" {
		if o.record != "" {
			s, err := db.StartSession(o.record)
			if err != nil {
				return err
			}
			in.db, in.session = db, s.ID
			log.Printf("recording to session %s", s.ID)
		}
		if err := ingestInput(o.input, stdin, in); err != nil {
			return err
		}
	}

	if o.source != "" {
		if err := printLookup(ctx, o, cfg, buf, in, stdout); err != nil {
			return err
		}
	}

	if o.frames {
		var out string
		var err error
		buf.View(func(b *tf.Buffer) { out, err = b.FramesAsYAML() })
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, out)
	}

	if o.plot != "" {
		if err := security.ValidateOutputPath(o.plot); err != nil {
			return err
		}
		if !in.seen {
			return errors.New("nothing to plot")
		}
		s, err := tfplot.Trajectory(buf, o.source, o.target, in.oldest, in.newest, cfg.GetPlotStep())
		if err != nil {
			return err
		}
		if err := tfplot.SavePNG(s, o.plot); err != nil {
			return err
		}
		log.Printf("wrote %d samples (%d skipped) to %s", len(s.Points), s.Skipped, o.plot)
	}
	return nil
}

func ingestInput(path string, stdin io.Reader, in *ingester) error {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	n, err := readBatches(r, in.ingest)
	if err != nil {
		return err
	}
	log.Printf("ingested %d transforms", n)
	return nil
}

func printLookup(ctx context.Context, o *options, cfg *config.Config, buf *tf.LockedBuffer, in *ingester, stdout io.Writer) error {
	at := in.resolve(o.at)

	var got msg.TransformStamped
	var err error
	switch {
	case o.fixed != "":
		got, err = buf.LookupWithTimeTravel(o.target, at, o.source, in.resolve(o.sourceTime), o.fixed)
	case o.wait:
		ctx, cancel := context.WithTimeout(ctx, cfg.GetWaitTimeout())
		defer cancel()
		got, err = buf.WaitForTransform(ctx, o.source, o.target, at)
	default:
		got, err = buf.Lookup(o.source, o.target, at)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(got)
}

func printSessions(db *tfdb.DB, stdout io.Writer) error {
	sessions, err := db.Sessions()
	if err != nil {
		return err
	}
	for _, s := range sessions {
		fmt.Fprintf(stdout, "%s\t%s\t%d\t%s\n", s.ID, s.StartedAt.Format("2006-01-02T15:04:05Z07:00"), s.Transforms, s.Label)
	}
	return nil
}

// ingester feeds the buffer, optionally records each batch, and tracks the
// stamp range it has seen.
type ingester struct {
	buf     *tf.LockedBuffer
	db      *tfdb.DB
	session string

	seen           bool
	oldest, newest msg.Time
}

func (in *ingester) ingest(batch msg.TFMessage, static bool) error {
	if in.db != nil {
		if err := in.db.Record(in.session, batch, static); err != nil {
			return err
		}
	}
	in.Ingest(batch, static)
	return nil
}

// Ingest satisfies tfdb.Ingester for replays.
func (in *ingester) Ingest(batch msg.TFMessage, static bool) {
	in.buf.Ingest(batch, static)
	for _, t := range batch.Transforms {
		stamp := t.Header.Stamp
		if !in.seen || stamp.Before(in.oldest) {
			in.oldest = stamp
		}
		if !in.seen || stamp.After(in.newest) {
			in.newest = stamp
		}
		in.seen = true
	}
}

// resolve maps a flag value in seconds to a stamp; negative means newest.
func (in *ingester) resolve(sec float64) msg.Time {
	if sec < 0 {
		return in.newest
	}
	return msg.FromSeconds(sec)
}
