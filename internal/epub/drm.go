package epub

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"strings"
)

// ErrDRMProtected is returned for EPUBs whose resources are encrypted.
var ErrDRMProtected = errors.New("epub: DRM-protected content cannot be processed")

type encryptionXML struct {
	XMLName       xml.Name `xml:"encryption"`
	EncryptedData []struct {
		Method struct {
			Algorithm string `xml:"Algorithm,attr"`
		} `xml:"EncryptionMethod"`
		Reference struct {
			URI string `xml:"URI,attr"`
		} `xml:"CipherData>CipherReference"`
	} `xml:"EncryptedData"`
}

// CheckDRM returns ErrDRMProtected when the archive carries Adobe ADEPT rights or
// encrypts anything other than obfuscated fonts.
func CheckDRM(zr *zip.Reader) error {
	for _, f := range zr.File {
		switch f.Name {
		case "META-INF/rights.xml":
			return ErrDRMProtected
		case "META-INF/encryption.xml":
			data, err := readEntry(zr, f.Name)
			if err != nil {
				return ErrDRMProtected
			}
			var enc encryptionXML
			if err := xml.Unmarshal(data, &enc); err != nil {
				return ErrDRMProtected
			}
			for _, ed := range enc.EncryptedData {
				if isFontObfuscation(ed.Method.Algorithm) {
					continue
				}
				if ed.Reference.URI != "" {
					return ErrDRMProtected
				}
			}
		}
	}
	return nil
}

// isFontObfuscation matches the IDPF and Adobe font mangling algorithms.
func isFontObfuscation(algorithm string) bool {
	switch strings.TrimSpace(algorithm) {
	case "http://www.idpf.org/2008/embedding", "http://ns.adobe.com/pdf/enc#RC":
		return true
	}
	return strings.Contains(strings.ToLower(algorithm), "obfuscation")
}
