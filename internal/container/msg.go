package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// MAPI property IDs used by the .msg reader ([MS-OXMSG] stream naming:
// __substg1.0_<id><type> with type 001F UTF-16, 001E codepage, 0102 binary).
const (
	propSubject         = 0x0037
	propClientSubmit    = 0x0039
	propSenderName      = 0x0C1A
	propSenderEmail     = 0x0C1F
	propDisplayBcc      = 0x0E02
	propDisplayCc       = 0x0E03
	propDisplayTo       = 0x0E04
	propDeliveryTime    = 0x0E06
	propBody            = 0x1000
	propHTMLBody        = 0x1013
	propAttachData      = 0x3701
	propAttachShortName = 0x3704
	propAttachLongName  = 0x3707
	propSenderSMTP      = 0x5D01
)

const (
	typeUTF16  = 0x001F
	typeString = 0x001E
	typeBinary = 0x0102
	typeTime   = 0x0040
)

const (
	attachStoragePrefix = "__attach_version1.0_"
	propertiesStream    = "__properties_version1.0"
	embeddedMsgStream   = "__substg1.0_3701000D"
)

// Offset between the Windows FILETIME epoch (1601) and the Unix epoch, in
// 100ns ticks.
const filetimeEpochDiff = 116444736000000000

var utf16Decoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// ReadMSG parses an Outlook .msg compound file. Embedded messages are kept
// as sub-storage attachments and parsed in place when the walker descends
// into them; no bytes are re-exported.
func ReadMSG(data []byte) (*Message, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	root := newStorageNode("")
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		node := root.ensure(entry.Path)
		child := node.ensure1(entry.Name)
		if entry.Size > 0 {
			buf := make([]byte, entry.Size)
			n, _ := io.ReadFull(entry, buf)
			child.data = buf[:n]
		}
	}

	if len(root.children) == 0 {
		return nil, fmt.Errorf("%w: empty compound file", ErrUnsupportedFormat)
	}

	return root.message(true), nil
}

// storageNode is one directory entry of the compound file: a stream when
// data is non-nil, a storage otherwise.
type storageNode struct {
	name     string
	children map[string]*storageNode
	data     []byte
}

func newStorageNode(name string) *storageNode {
	return &storageNode{name: name, children: map[string]*storageNode{}}
}

// ensure walks (and creates) the storage path, skipping the root entry name
// some writers include.
func (n *storageNode) ensure(path []string) *storageNode {
	node := n
	for _, elem := range path {
		if elem == "Root Entry" {
			continue
		}
		node = node.ensure1(elem)
	}
	return node
}

func (n *storageNode) ensure1(name string) *storageNode {
	if child, ok := n.children[name]; ok {
		return child
	}
	child := newStorageNode(name)
	n.children[name] = child
	return child
}

func (n *storageNode) child(name string) *storageNode {
	return n.children[name]
}

// message assembles a Message from this storage level. topLevel selects the
// property-stream header length (32 bytes for the root message, 24 for
// embedded ones).
func (n *storageNode) message(topLevel bool) *Message {
	msg := &Message{
		Subject:  n.stringProp(propSubject),
		To:       n.stringProp(propDisplayTo),
		Cc:       n.stringProp(propDisplayCc),
		Bcc:      n.stringProp(propDisplayBcc),
		BodyText: n.stringProp(propBody),
	}

	senderAddr := n.stringProp(propSenderEmail)
	if senderAddr == "" {
		senderAddr = n.stringProp(propSenderSMTP)
	}
	msg.From = formatAddress(n.stringProp(propSenderName), senderAddr)

	if html := n.binaryProp(propHTMLBody); len(html) > 0 {
		msg.BodyHTML = string(html)
	} else {
		msg.BodyHTML = n.stringProp(propHTMLBody)
	}

	if t, ok := n.messageTime(topLevel); ok {
		msg.Date = t
	}

	for _, name := range n.sortedChildren(attachStoragePrefix) {
		att := n.children[name]

		if emb := att.child(embeddedMsgStream); emb != nil {
			msg.Attachments = append(msg.Attachments, &embeddedAttachment{
				name: att.attachmentName(),
				node: emb,
			})
			continue
		}

		data := att.binaryProp(propAttachData)
		if data == nil {
			// OLE objects and attachments without a data stream
			continue
		}
		msg.Attachments = append(msg.Attachments, &bytesAttachment{
			name: att.attachmentName(),
			data: data,
		})
	}

	return msg
}

// attachmentName prefers the long filename property over the 8.3 short one
func (n *storageNode) attachmentName() string {
	if name := n.stringProp(propAttachLongName); name != "" {
		return name
	}
	return n.stringProp(propAttachShortName)
}

// stringProp reads a string property, trying the UTF-16 variant first and
// falling back to the codepage (assumed windows-1252) variant.
func (n *storageNode) stringProp(id uint16) string {
	if node := n.child(substgName(id, typeUTF16)); node != nil {
		return decodeUTF16(node.data)
	}
	if node := n.child(substgName(id, typeString)); node != nil {
		return decodeCodepage(node.data)
	}
	return ""
}

func (n *storageNode) binaryProp(id uint16) []byte {
	if node := n.child(substgName(id, typeBinary)); node != nil {
		return node.data
	}
	return nil
}

// messageTime reads the submit or delivery timestamp from the fixed-length
// property stream. Client submit time wins when both are present.
func (n *storageNode) messageTime(topLevel bool) (time.Time, bool) {
	props := n.child(propertiesStream)
	if props == nil {
		return time.Time{}, false
	}

	headerLen := 24
	if topLevel {
		headerLen = 32
	}

	var submit, delivery time.Time
	data := props.data
	for off := headerLen; off+16 <= len(data); off += 16 {
		typ := binary.LittleEndian.Uint16(data[off:])
		id := binary.LittleEndian.Uint16(data[off+2:])
		if typ != typeTime {
			continue
		}
		t, ok := filetimeToTime(binary.LittleEndian.Uint64(data[off+8:]))
		if !ok {
			continue
		}
		switch id {
		case propClientSubmit:
			submit = t
		case propDeliveryTime:
			delivery = t
		}
	}

	switch {
	case !submit.IsZero():
		return submit, true
	case !delivery.IsZero():
		return delivery, true
	default:
		return time.Time{}, false
	}
}

func (n *storageNode) sortedChildren(prefix string) []string {
	var names []string
	for name := range n.children {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func substgName(id, typ uint16) string {
	return fmt.Sprintf("__substg1.0_%04X%04X", id, typ)
}

func decodeUTF16(b []byte) string {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	out, err := utf16Decoder.NewDecoder().Bytes(b)
	if err != nil {
		return strings.TrimRight(string(b), "\x00")
	}
	return strings.TrimRight(string(out), "\x00")
}

func decodeCodepage(b []byte) string {
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return strings.TrimRight(string(b), "\x00")
	}
	return strings.TrimRight(string(out), "\x00")
}

// filetimeToTime converts a Windows FILETIME (100ns ticks since 1601) to a
// UTC time. Zero and pre-epoch values are rejected.
func filetimeToTime(ft uint64) (time.Time, bool) {
	if ft == 0 || ft < filetimeEpochDiff {
		return time.Time{}, false
	}
	ticks := int64(ft - filetimeEpochDiff)
	return time.Unix(ticks/1e7, (ticks%1e7)*100).UTC(), true
}

// embeddedAttachment is a nested message kept as a live sub-storage; it has
// no standalone byte stream.
type embeddedAttachment struct {
	name string
	node *storageNode
}

func (a *embeddedAttachment) Name() string {
	if a.name != "" {
		return a.name
	}
	return "embedded-message.msg"
}

func (a *embeddedAttachment) Open() (io.ReadCloser, error) {
	return nil, errors.New("embedded message storage has no raw byte stream")
}

func (a *embeddedAttachment) Embedded() (*Message, error) {
	return a.node.message(false), nil
}
