// Package contentmeta implements the persistent hash -> ContentMeta mapping,
// mirrored in memory for O(1) reads, plus the MIME/content-type inference
// rules derived at write time. Backed by buntdb as the embedded KV, with
// the same encode-on-write discipline cmn/jsp uses for files.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package contentmeta

import (
	"regexp"

	"github.com/cablehead/stacks/cmn"
	"github.com/cablehead/stacks/cmn/cos"
)

// MimeType is the coarse content kind a blob was written as.
type MimeType string

const (
	TextPlain MimeType = "TextPlain"
	ImagePng  MimeType = "ImagePng"
)

const terseMaxBytes = 100

// ContentMeta is the derived metadata for one CAS hash.
type ContentMeta struct {
	Hash        cmn.Hash
	MimeType    MimeType
	ContentType string
	Terse       string
	Tiktokens   int
}

var linkRe = regexp.MustCompile(`^https://[^\s/$.?#].[^\s]*$`)

// Derive computes a ContentMeta for freshly-written content, per the rules
// in the engine's content-metadata design: Link vs Text for TextPlain
// content, and a ≤100-char terse preview.
func Derive(hash cmn.Hash, mime MimeType, content []byte) ContentMeta {
	cm := ContentMeta{Hash: hash, MimeType: mime}
	switch mime {
	case TextPlain:
		text := string(content)
		if linkRe.Match(content) {
			cm.ContentType = "Link"
		} else {
			cm.ContentType = "Text"
		}
		cm.Terse = cos.TruncateUTF8Lossy(text, terseMaxBytes)
	case ImagePng:
		cm.ContentType = "Image"
		cm.Terse = "Image"
	}
	return cm
}
