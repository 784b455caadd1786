package api

// DatasetOptions параметры датасета, передаваемые при регистрации
type DatasetOptions struct {
	SyncFrequency float64 `json:"syncFrequency"` // интервал синхронизации в секундах
}

// RegisterDatasetRequest представляет запрос на регистрацию датасета
type RegisterDatasetRequest struct {
	Options DatasetOptions `json:"options"`
}

// DatasetResponse представляет зарегистрированный датасет
type DatasetResponse struct {
	Name    string         `json:"name"`
	Options DatasetOptions `json:"options"`
}

// RecordState текущее состояние записи на сервере
type RecordState struct {
	Data map[string]any `json:"data"`
	Hash string         `json:"hash"`
}

// ListRecordsResponse полное состояние датасета на сервере
type ListRecordsResponse struct {
	Records map[string]RecordState `json:"records"` // uid -> запись
}

// RecordRequest тело запросов создания и обновления записи
type RecordRequest struct {
	Data map[string]any `json:"data"`
}

// RecordResponse ответ на создание или обновление записи
type RecordResponse struct {
	UID  string `json:"uid"`
	Hash string `json:"hash"`
}
