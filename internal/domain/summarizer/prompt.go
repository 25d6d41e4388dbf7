package summarizer

import (
	"fmt"
	"strings"

	apperrors "github.com/neurabot/neurabot-api/pkg/errors"
)

const patologiTemplate = `
Anda adalah seorang dokter patologi berpengalaman.
Langsung berikan ringkasan final saja, tanpa proses berpikir.
Ikuti format:

**Ringkasan Patologi Klinis**

**Jenis Pemeriksaan:**
- ...

**Jenis Spesimen:**
- ...

**Hasil Pemeriksaan Makroskopik:**
- ...

**Hasil Pemeriksaan Mikroskopik:**
- ...

**Diagnosis:**
- ...

**Rekomendasi / Tindak Lanjut:**
- ...

Aturan ketat:
- Hanya ekstrak fakta yang ada pada teks sumber.
- Pertahankan angka/satuan persis seperti tertulis.
- Jangan menambah atau mengubah fakta yang tidak ada di teks.

Teks sumber:
%s

Ringkasan:
`

const dokterHewanTemplate = `
Anda adalah seorang dokter hewan berpengalaman.
Langsung berikan ringkasan final saja, tanpa proses berpikir.
Ikuti format:

**Ringkasan Klinis Hewan**

**Identitas Hewan:**
- ...

**Alasan Kunjungan:**
- ...

**Riwayat Medis:**
- ...

**Pemeriksaan Fisik:**
- ...

**Pemeriksaan Penunjang:**
- ...

**Diagnosis / Implikasi:**
- ...

**Rencana Penanganan:**
- ...

**Prognosis:**
- ...

**Rekomendasi / Tindak Lanjut:**
- ...

Aturan ketat:
- Hanya ekstrak fakta yang ada pada teks sumber.
- Pertahankan angka/satuan persis seperti tertulis.
- Jangan menambah atau mengubah fakta yang tidak ada di teks.

Teks sumber:
%s

Ringkasan:
`

// BuildPrompt renders the instruction for mode with text appended verbatim.
// Unknown modes fall back to the pathology template.
func BuildPrompt(text string, mode Mode) string {
	template := patologiTemplate
	if Mode(strings.ToLower(string(mode))) == ModeDokterHewan {
		template = dokterHewanTemplate
	}
	return fmt.Sprintf(template, text)
}

// ParseMode validates a client supplied mode. An empty value selects fallback.
func ParseMode(raw string, fallback Mode) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(raw)))
	if mode == "" {
		if fallback == "" {
			return ModePatologi, nil
		}
		return fallback, nil
	}
	for _, allowed := range AllowedModes {
		if mode == allowed {
			return mode, nil
		}
	}
	return "", apperrors.Wrap(apperrors.CodeValidation, fmt.Sprintf("mode %q is not supported", raw), nil)
}
