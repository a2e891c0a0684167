package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mitgor/screensort/pkg/journal"
	"github.com/mitgor/screensort/pkg/screenshot"
)

// processItem runs the full per-item pipeline and always returns exactly
// one record. Items are only ever moved on a fully successful run; any
// failed step leaves the screenshot where it was.
func (p *Processor) processItem(ctx context.Context, shot screenshot.Screenshot, playlistID string) screenshot.ResultRecord {
	fragments, err := p.transcriber.Transcribe(ctx, shot)
	if err != nil {
		p.log.Warn("transcription failed", "screenshot", shot.ID, "error", err)
		return screenshot.NewResultRecord(shot.ID, screenshot.StatusFailed, screenshot.ContentTypeUnknown,
			fmt.Sprintf("transcription failed: %v", err))
	}

	contentType := p.classifier.Classify(ctx, fragments)
	p.log.Debug("classified", "screenshot", shot.ID, "type", contentType, "fragments", len(fragments))

	var record screenshot.ResultRecord
	switch contentType {
	case screenshot.ContentTypeMusic:
		record = p.processMusic(ctx, shot, fragments, playlistID)
	case screenshot.ContentTypeMovie:
		record = p.processMovie(ctx, shot, fragments)
	case screenshot.ContentTypeBook:
		record = p.processBook(ctx, shot, fragments)
	case screenshot.ContentTypeMeme:
		record = p.processMeme(ctx, shot)
	default:
		record = screenshot.NewResultRecord(shot.ID, screenshot.StatusFlagged, screenshot.ContentTypeUnknown,
			"unrecognized content, left in place")
	}

	p.annotate(ctx, shot.ID, record)

	return record
}

func (p *Processor) processMusic(ctx context.Context, shot screenshot.Screenshot, fragments []screenshot.Fragment, playlistID string) screenshot.ResultRecord {
	info, err := p.music.Extract(ctx, fragments)
	if err != nil {
		return screenshot.NewResultRecord(shot.ID, screenshot.StatusFlagged, screenshot.ContentTypeMusic,
			fmt.Sprintf("extraction failed: %v", err))
	}

	link := ""
	if p.videos != nil {
		match, err := p.videos.Search(ctx, info.Title, info.Artist)
		if err != nil {
			p.log.Debug("video search failed", "title", info.Title, "error", err)
		} else {
			link = match.Link
		}
	}

	if link != "" && p.playlist != nil && playlistID != "" {
		if err := p.playlist.Add(ctx, playlistID, link); err != nil {
			return withMetadata(flagged(shot.ID, screenshot.ContentTypeMusic, "playlist add failed: %v", err),
				info.Title, info.Artist, link)
		}
	}

	if err := p.appendJournal(ctx, screenshot.ContentTypeMusic, info.Title, info.Artist, link); err != nil {
		return withMetadata(flagged(shot.ID, screenshot.ContentTypeMusic, "journal append failed: %v", err),
			info.Title, info.Artist, link)
	}

	if err := p.lib.Move(ctx, shot.ID, screenshot.ContentTypeMusic); err != nil {
		return withMetadata(flagged(shot.ID, screenshot.ContentTypeMusic, "move failed: %v", err),
			info.Title, info.Artist, link)
	}

	record := screenshot.NewResultRecord(shot.ID, screenshot.StatusSuccess, screenshot.ContentTypeMusic, "sorted into music")
	return withMetadata(record, info.Title, info.Artist, link)
}

func (p *Processor) processMovie(ctx context.Context, shot screenshot.Screenshot, fragments []screenshot.Fragment) screenshot.ResultRecord {
	info, err := p.movie.Extract(ctx, fragments)
	if err != nil {
		return screenshot.NewResultRecord(shot.ID, screenshot.StatusFlagged, screenshot.ContentTypeMovie,
			fmt.Sprintf("extraction failed: %v", err))
	}

	link := ""
	creator := info.Director
	if p.movies != nil {
		year := ""
		if info.Year > 0 {
			year = strconv.Itoa(info.Year)
		}
		match, err := p.movies.Search(ctx, info.Title, year)
		if err != nil {
			p.log.Debug("movie lookup failed", "title", info.Title, "error", err)
		} else {
			link = match.Link
			if creator == "" {
				creator = match.Creator
			}
		}
	}

	if err := p.appendJournal(ctx, screenshot.ContentTypeMovie, info.Title, creator, link); err != nil {
		return withMetadata(flagged(shot.ID, screenshot.ContentTypeMovie, "journal append failed: %v", err),
			info.Title, creator, link)
	}

	if err := p.lib.Move(ctx, shot.ID, screenshot.ContentTypeMovie); err != nil {
		return withMetadata(flagged(shot.ID, screenshot.ContentTypeMovie, "move failed: %v", err),
			info.Title, creator, link)
	}

	record := screenshot.NewResultRecord(shot.ID, screenshot.StatusSuccess, screenshot.ContentTypeMovie, "sorted into movies")
	return withMetadata(record, info.Title, creator, link)
}

func (p *Processor) processBook(ctx context.Context, shot screenshot.Screenshot, fragments []screenshot.Fragment) screenshot.ResultRecord {
	info, err := p.book.Extract(ctx, fragments)
	if err != nil {
		return screenshot.NewResultRecord(shot.ID, screenshot.StatusFlagged, screenshot.ContentTypeBook,
			fmt.Sprintf("extraction failed: %v", err))
	}

	link := ""
	creator := info.Author
	if p.books != nil {
		match, err := p.books.Search(ctx, info.Title, info.Author)
		if err != nil {
			p.log.Debug("book lookup failed", "title", info.Title, "error", err)
		} else {
			link = match.Link
			if creator == "" {
				creator = match.Creator
			}
		}
	}

	if err := p.appendJournal(ctx, screenshot.ContentTypeBook, info.Title, creator, link); err != nil {
		return withMetadata(flagged(shot.ID, screenshot.ContentTypeBook, "journal append failed: %v", err),
			info.Title, creator, link)
	}

	if err := p.lib.Move(ctx, shot.ID, screenshot.ContentTypeBook); err != nil {
		return withMetadata(flagged(shot.ID, screenshot.ContentTypeBook, "move failed: %v", err),
			info.Title, creator, link)
	}

	record := screenshot.NewResultRecord(shot.ID, screenshot.StatusSuccess, screenshot.ContentTypeBook, "sorted into books")
	return withMetadata(record, info.Title, creator, link)
}

func (p *Processor) processMeme(ctx context.Context, shot screenshot.Screenshot) screenshot.ResultRecord {
	if err := p.lib.Move(ctx, shot.ID, screenshot.ContentTypeMeme); err != nil {
		return screenshot.NewResultRecord(shot.ID, screenshot.StatusFailed, screenshot.ContentTypeMeme,
			fmt.Sprintf("move failed: %v", err))
	}

	return screenshot.NewResultRecord(shot.ID, screenshot.StatusSuccess, screenshot.ContentTypeMeme, "sorted into memes")
}

// appendJournal writes one journal entry. Duplicate entries are fine;
// only hard failures bubble up.
func (p *Processor) appendJournal(ctx context.Context, contentType screenshot.ContentType, title, creator, link string) error {
	if p.journal == nil {
		return nil
	}

	added, err := p.journal.Append(ctx, journal.Entry{
		Type:    contentType,
		Title:   title,
		Creator: creator,
		Link:    link,
		NotedAt: p.now(),
	})
	if err != nil {
		return err
	}
	if !added {
		p.log.Debug("journal entry already present", "title", title)
	}

	return nil
}

// annotate writes the outcome onto the screenshot. Best-effort: the note
// carries the legacy marker so a lost cache still skips this item.
func (p *Processor) annotate(ctx context.Context, id string, record screenshot.ResultRecord) {
	note := legacyMarker + ": " + record.Summary()
	if err := p.lib.Annotate(ctx, id, note); err != nil {
		p.log.Debug("annotation failed", "screenshot", id, "error", err)
	}
}

func flagged(screenshotID string, contentType screenshot.ContentType, format string, err error) screenshot.ResultRecord {
	return screenshot.NewResultRecord(screenshotID, screenshot.StatusFlagged, contentType, fmt.Sprintf(format, err))
}

func withMetadata(record screenshot.ResultRecord, title, creator, link string) screenshot.ResultRecord {
	record.Title = title
	record.Creator = creator
	record.Link = link
	return record
}
