// Package id3 reads back the ID3v2 tags ffmpeg embedded in a published file.
package id3

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bogem/id3v2"
)

// Picture summarizes an APIC frame without holding the image bytes.
type Picture struct {
	MimeType    string
	Type        byte
	Description string
	Size        int
}

// Info is the subset of an ID3v2 tag audiograb writes.
type Info struct {
	Version  byte
	Title    string
	Artist   string
	Album    string
	Genre    string
	Comment  string
	Pictures []Picture
}

// HasCover reports whether exactly one attached picture is present.
func (i Info) HasCover() bool {
	return len(i.Pictures) == 1
}

// Read parses the ID3v2 tag at the start of path.
func Read(path string) (Info, error) {
	if strings.TrimSpace(path) == "" {
		return Info{}, errors.New("id3 read: empty path")
	}
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return Info{}, fmt.Errorf("id3 read %s: %w", path, err)
	}
	defer tag.Close()

	info := Info{
		Version: tag.Version(),
		Title:   tag.Title(),
		Artist:  tag.Artist(),
		Album:   tag.Album(),
		Genre:   tag.Genre(),
	}
	for _, frame := range tag.GetFrames(tag.CommonID("Comments")) {
		if comment, ok := frame.(id3v2.CommentFrame); ok && info.Comment == "" {
			info.Comment = comment.Text
		}
	}
	for _, frame := range tag.GetFrames(tag.CommonID("Attached picture")) {
		pic, ok := frame.(id3v2.PictureFrame)
		if !ok {
			continue
		}
		info.Pictures = append(info.Pictures, Picture{
			MimeType:    pic.MimeType,
			Type:        pic.PictureType,
			Description: pic.Description,
			Size:        len(pic.Picture),
		})
	}
	return info, nil
}
