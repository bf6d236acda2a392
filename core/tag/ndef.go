package tag

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
)

// Type Name Formats of an NDEF record.
const (
	TNFEmpty       byte = 0x00
	TNFWellKnown   byte = 0x01
	TNFMedia       byte = 0x02
	TNFAbsoluteURI byte = 0x03
	TNFExternal    byte = 0x04
	TNFUnknown     byte = 0x05
	TNFUnchanged   byte = 0x06
)

// record header flags
const (
	flagMB  byte = 0x80
	flagME  byte = 0x40
	flagCF  byte = 0x20
	flagSR  byte = 0x10
	flagIL  byte = 0x08
	tnfMask byte = 0x07
)

var (
	rtdText = []byte("T")
	rtdURI  = []byte("U")

	mimeTextPlain = []byte("text/plain")

	ErrMalformed = errors.New("malformed NDEF message")
	ErrChunked   = errors.New("chunked NDEF records are not supported")
)

// uriPrefixes maps the URI identifier code of a well-known URI record to its prefix.
var uriPrefixes = [...]string{
	"", "http://www.", "https://www.", "http://", "https://", "tel:", "mailto:",
	"ftp://anonymous:anonymous@", "ftp://ftp.", "ftps://", "sftp://", "smb://",
	"nfs://", "ftp://", "dav://", "news:", "telnet://", "imap:", "rtsp://", "urn:",
	"pop:", "sip:", "sips:", "tftp:", "btspp://", "btl2cap://", "btgoep://",
	"tcpobex://", "irdaobex://", "file://", "urn:epc:id:", "urn:epc:tag:",
	"urn:epc:pat:", "urn:epc:raw:", "urn:epc:", "urn:nfc:",
}

// Record is one NDEF record as read from a tag.
type Record struct {
	TNF     byte
	Type    []byte
	ID      []byte
	Payload []byte
}

// ParseMessage splits a raw NDEF message into its records.
func ParseMessage(b []byte) ([]Record, error) {
	var recs []Record
	for len(b) > 0 {
		hdr := b[0]
		if hdr&flagCF != 0 {
			return nil, ErrChunked
		}
		b = b[1:]

		if len(b) < 1 {
			return nil, ErrMalformed
		}
		typeLen := int(b[0])
		b = b[1:]

		var payloadLen int
		if hdr&flagSR != 0 {
			if len(b) < 1 {
				return nil, ErrMalformed
			}
			payloadLen = int(b[0])
			b = b[1:]
		} else {
			if len(b) < 4 {
				return nil, ErrMalformed
			}
			n := binary.BigEndian.Uint32(b[:4])
			if uint64(n) > uint64(len(b)) {
				return nil, ErrMalformed
			}
			payloadLen = int(n)
			b = b[4:]
		}

		var idLen int
		if hdr&flagIL != 0 {
			if len(b) < 1 {
				return nil, ErrMalformed
			}
			idLen = int(b[0])
			b = b[1:]
		}

		if len(b) < typeLen+idLen+payloadLen {
			return nil, ErrMalformed
		}
		rec := Record{TNF: hdr & tnfMask}
		rec.Type, b = b[:typeLen], b[typeLen:]
		if idLen > 0 {
			rec.ID, b = b[:idLen], b[idLen:]
		}
		rec.Payload, b = b[:payloadLen], b[payloadLen:]
		recs = append(recs, rec)

		if hdr&flagME != 0 {
			break
		}
	}
	return recs, nil
}

// EncodeMessage serializes records into an NDEF message, short records where they fit.
func EncodeMessage(recs ...Record) []byte {
	var buf bytes.Buffer
	for i, rec := range recs {
		hdr := rec.TNF & tnfMask
		if i == 0 {
			hdr |= flagMB
		}
		if i == len(recs)-1 {
			hdr |= flagME
		}
		short := len(rec.Payload) < 256
		if short {
			hdr |= flagSR
		}
		if len(rec.ID) > 0 {
			hdr |= flagIL
		}
		buf.WriteByte(hdr)
		buf.WriteByte(byte(len(rec.Type)))
		if short {
			buf.WriteByte(byte(len(rec.Payload)))
		} else {
			var n [4]byte
			binary.BigEndian.PutUint32(n[:], uint32(len(rec.Payload)))
			buf.Write(n[:])
		}
		if len(rec.ID) > 0 {
			buf.WriteByte(byte(len(rec.ID)))
		}
		buf.Write(rec.Type)
		buf.Write(rec.ID)
		buf.Write(rec.Payload)
	}
	return buf.Bytes()
}

// NewTextRecord returns a well-known UTF-8 text record.
func NewTextRecord(text, lang string) Record {
	payload := make([]byte, 0, 1+len(lang)+len(text))
	payload = append(payload, byte(len(lang)&0x3f))
	payload = append(payload, lang...)
	payload = append(payload, text...)
	return Record{TNF: TNFWellKnown, Type: rtdText, Payload: payload}
}

// NewURIRecord returns a well-known URI record, abbreviating the longest known prefix.
func NewURIRecord(uri string) Record {
	code := 0
	for i, p := range uriPrefixes {
		if p != "" && len(p) > len(uriPrefixes[code]) && len(uri) >= len(p) && uri[:len(p)] == p {
			code = i
		}
	}
	payload := append([]byte{byte(code)}, uri[len(uriPrefixes[code]):]...)
	return Record{TNF: TNFWellKnown, Type: rtdURI, Payload: payload}
}

func (r Record) isText() bool {
	return (r.TNF == TNFWellKnown && bytes.Equal(r.Type, rtdText)) ||
		(r.TNF == TNFMedia && bytes.HasPrefix(bytes.ToLower(r.Type), mimeTextPlain))
}

func (r Record) isURI() bool {
	return (r.TNF == TNFWellKnown && bytes.Equal(r.Type, rtdURI)) || r.TNF == TNFAbsoluteURI
}

// Text decodes a text record.
func (r Record) Text() (string, error) {
	if r.TNF == TNFMedia {
		if !utf8.Valid(r.Payload) {
			return "", errors.Wrap(ErrMalformed, "text/plain payload is not UTF-8")
		}
		return string(r.Payload), nil
	}
	if len(r.Payload) < 1 {
		return "", errors.Wrap(ErrMalformed, "empty text record")
	}
	status := r.Payload[0]
	langLen := int(status & 0x3f)
	if len(r.Payload) < 1+langLen {
		return "", errors.Wrap(ErrMalformed, "text record language code overflows payload")
	}
	body := r.Payload[1+langLen:]
	if status&0x80 == 0 {
		if !utf8.Valid(body) {
			return "", errors.Wrap(ErrMalformed, "text record is not UTF-8")
		}
		return string(body), nil
	}
	out, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder().Bytes(body)
	if err != nil {
		return "", errors.Wrap(err, "decoding UTF-16 text record")
	}
	return string(out), nil
}

// URI decodes a URI record.
func (r Record) URI() (string, error) {
	if r.TNF == TNFAbsoluteURI {
		if len(r.Type) > 0 {
			return string(r.Type), nil
		}
		return string(r.Payload), nil
	}
	if len(r.Payload) < 1 {
		return "", errors.Wrap(ErrMalformed, "empty URI record")
	}
	prefix := ""
	if code := int(r.Payload[0]); code < len(uriPrefixes) {
		prefix = uriPrefixes[code]
	}
	return prefix + string(r.Payload[1:]), nil
}
