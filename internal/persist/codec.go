package persist

import (
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spool/internal/events"
	"github.com/desertthunder/spool/internal/extract"
	"github.com/desertthunder/spool/internal/media"
	"github.com/desertthunder/spool/internal/queue"
	"github.com/desertthunder/spool/internal/shared"
)

// Context carries the runtime handles decoding needs. These are supplied
// explicitly by the caller and never read from the persisted payload.
type Context struct {
	Client     *http.Client
	Config     *shared.Config
	Dispatcher *extract.Dispatcher
	Bus        *events.Bus
	Prober     media.Prober
	Logger     *log.Logger
}

func (c Context) deps(session string) queue.Deps {
	return queue.Deps{
		Session:    session,
		Client:     c.Client,
		Config:     c.Config,
		Dispatcher: c.Dispatcher,
		Bus:        c.Bus,
		Prober:     c.Prober,
		Logger:     c.Logger,
	}
}

// Encode snapshots a playlist into its persisted record form.
func Encode(p *queue.Playlist) *QueueRecord {
	rec := &QueueRecord{Version: QueueRecordVersion}

	for _, e := range p.Entries() {
		switch entry := e.(type) {
		case *queue.URLEntry:
			rec.Entries = append(rec.Entries, EntryRecord{
				Kind:             KindURL,
				Version:          EntryRecordVersion,
				URL:              entry.Locator(),
				Title:            entry.Title(),
				Duration:         durationSeconds(entry),
				Downloaded:       entry.IsDownloaded(),
				ExpectedFilename: entry.ExpectedFilename(),
				Filename:         entry.Filename(),
				Filter:           entry.Filter(),
				Meta:             metaRecord(entry.Meta()),
			})
		case *queue.StreamEntry:
			rec.Entries = append(rec.Entries, EntryRecord{
				Kind:        KindStream,
				Version:     EntryRecordVersion,
				URL:         entry.Locator(),
				Title:       entry.Title(),
				Filename:    entry.Filename(),
				Destination: entry.Destination(),
				Meta:        metaRecord(entry.Meta()),
			})
		}
	}

	return rec
}

// decoders is the closed registry mapping kind discriminators to
// reconstruction functions. Unknown kinds are a per-record soft failure.
var decoders = map[string]func(queue.Deps, *shared.Config, EntryRecord) (queue.Entry, error){
	KindURL:    decodeURLEntry,
	KindStream: decodeStreamEntry,
}

// Decode reconstructs a playlist from its persisted record, re-injecting
// runtime dependencies from ctx. A record whose discriminator is unknown or
// whose required fields are absent fails that one record; dropped reports
// how many were skipped. A nil record yields an empty playlist.
func Decode(ctx Context, session string, rec *QueueRecord) (p *queue.Playlist, dropped int, err error) {
	deps := ctx.deps(session)
	p = queue.New(deps)
	if rec == nil {
		return p, 0, nil
	}

	for _, er := range rec.Entries {
		decode, ok := decoders[er.Kind]
		if !ok {
			dropped++
			if ctx.Logger != nil {
				ctx.Logger.Warnf("skipping entry record with unknown kind %q", er.Kind)
			}
			continue
		}

		entry, err := decode(deps, ctx.Config, er)
		if err != nil {
			dropped++
			if ctx.Logger != nil {
				ctx.Logger.Warnf("could not load %s entry record: %v", er.Kind, err)
			}
			continue
		}
		p.Restore(entry)
	}

	return p, dropped, nil
}

func decodeURLEntry(deps queue.Deps, cfg *shared.Config, er EntryRecord) (queue.Entry, error) {
	if er.URL == "" || er.Title == "" {
		return nil, fmt.Errorf("missing required fields")
	}

	var duration *time.Duration
	if er.Duration != nil {
		d := time.Duration(*er.Duration * float64(time.Second))
		duration = &d
	}

	entry := queue.NewURLEntry(deps, er.URL, er.Title, duration, er.ExpectedFilename, metaFromRecord(er.Meta))

	// The downloaded flag is only trusted when cached media survives
	// restarts; otherwise the entry re-downloads on first readiness request.
	filename := ""
	if er.Downloaded && cfg != nil && cfg.Cache.Retain {
		filename = er.Filename
	}
	entry.Restore(filename, er.Filter)

	return entry, nil
}

func decodeStreamEntry(deps queue.Deps, _ *shared.Config, er EntryRecord) (queue.Entry, error) {
	if er.URL == "" || er.Title == "" {
		return nil, fmt.Errorf("missing required fields")
	}

	entry := queue.NewStreamEntry(deps, er.URL, er.Title, er.Destination, metaFromRecord(er.Meta))
	if er.Destination == "" && er.Filename != "" {
		entry.RestoreFilename(er.Filename)
	}
	return entry, nil
}

func durationSeconds(e queue.Entry) *float64 {
	d, ok := e.Duration()
	if !ok {
		return nil
	}
	s := d.Seconds()
	return &s
}

func metaRecord(m queue.Meta) MetaRecord {
	return MetaRecord{Author: FlexID(m.AuthorID), Channel: FlexID(m.ChannelID)}
}

func metaFromRecord(m MetaRecord) queue.Meta {
	return queue.Meta{AuthorID: int64(m.Author), ChannelID: int64(m.Channel)}
}
