package allure

import (
	"mime"
	"net/http"
	"strings"
)

// DefaultAttachmentName is used when an attachment is recorded without a name.
const DefaultAttachmentName = "attachment"

// AttachmentType is a declared media type together with the extension used for
// the stored file. The zero value asks for inference.
type AttachmentType struct {
	MimeType  string
	Extension string
}

var (
	TypeText    = AttachmentType{MimeType: "text/plain", Extension: "txt"}
	TypeCSV     = AttachmentType{MimeType: "text/csv", Extension: "csv"}
	TypeTSV     = AttachmentType{MimeType: "text/tab-separated-values", Extension: "tsv"}
	TypeURIList = AttachmentType{MimeType: "text/uri-list", Extension: "uri"}
	TypeHTML    = AttachmentType{MimeType: "text/html", Extension: "html"}
	TypeXML     = AttachmentType{MimeType: "application/xml", Extension: "xml"}
	TypeJSON    = AttachmentType{MimeType: "application/json", Extension: "json"}
	TypeYAML    = AttachmentType{MimeType: "application/yaml", Extension: "yaml"}
	TypePCAP    = AttachmentType{MimeType: "application/vnd.tcpdump.pcap", Extension: "pcap"}
	TypePNG     = AttachmentType{MimeType: "image/png", Extension: "png"}
	TypeJPG     = AttachmentType{MimeType: "image/jpg", Extension: "jpg"}
	TypeSVG     = AttachmentType{MimeType: "image/svg+xml", Extension: "svg"}
	TypeGIF     = AttachmentType{MimeType: "image/gif", Extension: "gif"}
	TypeBMP     = AttachmentType{MimeType: "image/bmp", Extension: "bmp"}
	TypeTIFF    = AttachmentType{MimeType: "image/tiff", Extension: "tiff"}
	TypeMP4     = AttachmentType{MimeType: "video/mp4", Extension: "mp4"}
	TypeOGG     = AttachmentType{MimeType: "video/ogg", Extension: "ogg"}
	TypeWEBM    = AttachmentType{MimeType: "video/webm", Extension: "webm"}
	TypePDF     = AttachmentType{MimeType: "application/pdf", Extension: "pdf"}
)

var knownTypes = []AttachmentType{
	TypeText, TypeCSV, TypeTSV, TypeURIList, TypeHTML, TypeXML, TypeJSON, TypeYAML, TypePCAP,
	TypePNG, TypeJPG, TypeSVG, TypeGIF, TypeBMP, TypeTIFF, TypeMP4, TypeOGG, TypeWEBM, TypePDF,
}

// IsZero reports whether neither the media type nor the extension were declared.
func (a AttachmentType) IsZero() bool {
	return a.MimeType == "" && a.Extension == ""
}

// Resolve fills whatever part of the type is missing. The media type wins over
// the extension, the extension wins over content sniffing of body.
func (a AttachmentType) Resolve(body []byte) AttachmentType {
	out := AttachmentType{MimeType: a.MimeType, Extension: strings.TrimPrefix(a.Extension, ".")}

	if out.MimeType == "" && out.Extension != "" {
		out.MimeType = mimeByExtension(out.Extension)
	}

	if out.MimeType == "" {
		out.MimeType = sniff(body)
	}

	if out.Extension == "" {
		out.Extension = extensionByMime(out.MimeType)
	}

	return out
}

func mimeByExtension(ext string) string {
	for _, t := range knownTypes {
		if strings.EqualFold(t.Extension, ext) {
			return t.MimeType
		}
	}

	if typ := mime.TypeByExtension("." + ext); typ != "" {
		return stripParams(typ)
	}

	return "application/octet-stream"
}

func extensionByMime(typ string) string {
	for _, t := range knownTypes {
		if strings.EqualFold(t.MimeType, typ) {
			return t.Extension
		}
	}

	if exts, err := mime.ExtensionsByType(typ); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}

	return "attach"
}

func sniff(body []byte) string {
	if len(body) == 0 {
		return TypeText.MimeType
	}

	return stripParams(http.DetectContentType(body))
}

func stripParams(typ string) string {
	mediaType, _, err := mime.ParseMediaType(typ)
	if err != nil {
		return typ
	}

	return mediaType
}
