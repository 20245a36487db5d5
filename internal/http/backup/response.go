package backup

import (
	"github.com/jpcaldeira/reserva/internal/backup"
)

type recordPreview struct {
	Index     int    `json:"index"`
	Label     string `json:"label"`
	Duplicate bool   `json:"duplicate"`
}

type classPreview struct {
	Class       backup.Class    `json:"class"`
	DisplayName string          `json:"displayName"`
	Selectable  bool            `json:"selectable"`
	Records     []recordPreview `json:"records"`
}

type previewResponse struct {
	Version     int            `json:"version"`
	ExportedAt  string         `json:"exportedAt,omitempty"`
	HasSettings bool           `json:"hasSettings"`
	Classes     []classPreview `json:"classes"`
}

func toPreviewResponse(sess *backup.Session) previewResponse {
	data := sess.Data()
	mask := sess.Mask()

	resp := previewResponse{
		Version:     sess.Snapshot().Version,
		ExportedAt:  sess.Snapshot().ExportedAt,
		HasSettings: data.Settings != nil,
	}

	for _, class := range backup.Classes {
		cp := classPreview{
			Class:       class,
			DisplayName: class.DisplayName(),
			Selectable:  class.Selectable(),
			Records:     make([]recordPreview, 0, data.Len(class)),
		}

		for i := 0; i < data.Len(class); i++ {
			ref := backup.RecordRef{Class: class, Index: i}
			cp.Records = append(cp.Records, recordPreview{
				Index:     i,
				Label:     data.Label(ref),
				Duplicate: mask.Duplicate(ref),
			})
		}

		resp.Classes = append(resp.Classes, cp)
	}

	return resp
}

type importResponse struct {
	Written         map[backup.Class]int `json:"written"`
	SettingsApplied bool                 `json:"settingsApplied"`
}

func toImportResponse(stats *backup.Stats) importResponse {
	return importResponse{
		Written:         stats.Written,
		SettingsApplied: stats.SettingsApplied,
	}
}
