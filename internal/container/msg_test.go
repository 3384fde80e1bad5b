package container

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utf16Bytes(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = binary.LittleEndian.AppendUint16(out, uint16(r))
	}
	return out
}

// propertiesStreamWith builds a __properties_version1.0 stream containing a
// single PT_SYSTIME property.
func propertiesStreamWith(headerLen int, id uint16, t time.Time) []byte {
	data := make([]byte, headerLen, headerLen+16)
	entry := make([]byte, 16)
	binary.LittleEndian.PutUint16(entry[0:], typeTime)
	binary.LittleEndian.PutUint16(entry[2:], id)
	ft := uint64(t.Unix())*1e7 + uint64(filetimeEpochDiff)
	binary.LittleEndian.PutUint64(entry[8:], ft)
	return append(data, entry...)
}

func TestSubstgName(t *testing.T) {
	assert.Equal(t, "__substg1.0_0037001F", substgName(propSubject, typeUTF16))
	assert.Equal(t, "__substg1.0_0E04001E", substgName(propDisplayTo, typeString))
	assert.Equal(t, "__substg1.0_37010102", substgName(propAttachData, typeBinary))
}

func TestDecodeUTF16(t *testing.T) {
	assert.Equal(t, "Hello", decodeUTF16(utf16Bytes("Hello")))
	assert.Equal(t, "Zürich", decodeUTF16(utf16Bytes("Zürich")))
	// trailing NUL and odd trailing byte are tolerated
	assert.Equal(t, "Hi", decodeUTF16(append(utf16Bytes("Hi\x00"), 0x41)))
	assert.Equal(t, "", decodeUTF16(nil))
}

func TestFiletimeToTime(t *testing.T) {
	want := time.Date(2020, 6, 15, 12, 30, 0, 0, time.UTC)
	ft := uint64(want.Unix())*1e7 + uint64(filetimeEpochDiff)

	got, ok := filetimeToTime(ft)
	require.True(t, ok)
	assert.True(t, got.Equal(want))

	_, ok = filetimeToTime(0)
	assert.False(t, ok)
	_, ok = filetimeToTime(12345)
	assert.False(t, ok)
}

// messageFixture builds a storage tree the way ReadMSG would from a .msg
// with one document attachment and one embedded message.
func messageFixture() *storageNode {
	root := newStorageNode("")
	root.ensure1(substgName(propSubject, typeUTF16)).data = utf16Bytes("Top subject")
	root.ensure1(substgName(propSenderName, typeUTF16)).data = utf16Bytes("Alice")
	root.ensure1(substgName(propSenderEmail, typeUTF16)).data = utf16Bytes("alice@example.com")
	root.ensure1(substgName(propDisplayTo, typeUTF16)).data = utf16Bytes("Bob")
	root.ensure1(substgName(propBody, typeUTF16)).data = utf16Bytes("outer body")

	sent := time.Date(2021, 3, 4, 9, 0, 0, 0, time.UTC)
	root.ensure1(propertiesStream).data = propertiesStreamWith(32, propClientSubmit, sent)

	att := root.ensure1(attachStoragePrefix + "#00000000")
	att.ensure1(substgName(propAttachLongName, typeUTF16)).data = utf16Bytes("report.docx")
	att.ensure1(substgName(propAttachData, typeBinary)).data = []byte("zipbytes")

	embAtt := root.ensure1(attachStoragePrefix + "#00000001")
	emb := embAtt.ensure1(embeddedMsgStream)
	emb.ensure1(substgName(propSubject, typeUTF16)).data = utf16Bytes("Inner subject")
	emb.ensure1(substgName(propBody, typeUTF16)).data = utf16Bytes("inner body")

	return root
}

func TestStorageNode_Message(t *testing.T) {
	msg := messageFixture().message(true)

	assert.Equal(t, "Top subject", msg.Subject)
	assert.Equal(t, "Alice <alice@example.com>", msg.From)
	assert.Equal(t, "Bob", msg.To)
	assert.Equal(t, "outer body", msg.BodyText)
	assert.True(t, msg.Date.Equal(time.Date(2021, 3, 4, 9, 0, 0, 0, time.UTC)))

	require.Len(t, msg.Attachments, 2)

	assert.Equal(t, "report.docx", msg.Attachments[0].Name())
	rc, err := msg.Attachments[0].Open()
	require.NoError(t, err)
	buf := make([]byte, 8)
	_, err = rc.Read(buf)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "zipbytes", string(buf))

	emb, ok := msg.Attachments[1].(EmbeddedContainer)
	require.True(t, ok, "second attachment should be an embedded container")
	inner, err := emb.Embedded()
	require.NoError(t, err)
	assert.Equal(t, "Inner subject", inner.Subject)
	assert.Equal(t, "inner body", inner.BodyText)
}

func TestStorageNode_MessageDeliveryTimeFallback(t *testing.T) {
	root := newStorageNode("")
	delivered := time.Date(2019, 12, 1, 8, 15, 0, 0, time.UTC)
	root.ensure1(propertiesStream).data = propertiesStreamWith(32, propDeliveryTime, delivered)

	msg := root.message(true)
	assert.True(t, msg.Date.Equal(delivered))
}

func TestStorageNode_CodepageFallback(t *testing.T) {
	root := newStorageNode("")
	// windows-1252 subject with 0xE9 (é)
	root.ensure1(substgName(propSubject, typeString)).data = []byte("r\xe9sum\xe9")

	msg := root.message(true)
	assert.Equal(t, "résumé", msg.Subject)
}

func TestStorageNode_AttachmentWithoutDataSkipped(t *testing.T) {
	root := newStorageNode("")
	att := root.ensure1(attachStoragePrefix + "#00000000")
	att.ensure1(substgName(propAttachLongName, typeUTF16)).data = utf16Bytes("ole-object")

	msg := root.message(true)
	assert.Empty(t, msg.Attachments)
}

func TestEnsureSkipsRootEntry(t *testing.T) {
	root := newStorageNode("")
	node := root.ensure([]string{"Root Entry", "__attach_version1.0_#00000000"})
	assert.Equal(t, "__attach_version1.0_#00000000", node.name)
	assert.NotNil(t, root.child("__attach_version1.0_#00000000"))
}
