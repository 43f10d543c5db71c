package menu

type DeliveryZone struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Fee  float64 `json:"fee"`
}

type Zones []DeliveryZone

func (z Zones) Find(id string) (DeliveryZone, bool) {
	if id == "" {
		return DeliveryZone{}, false
	}
	for _, zone := range z {
		if zone.ID == id {
			return zone, true
		}
	}
	return DeliveryZone{}, false
}

var deliveryZones = Zones{
	{ID: "zahraa-el-maadi", Name: "Zahraa El Maadi", Fee: 25},
	{ID: "kornish-el-maadi", Name: "Kornish El Maadi", Fee: 40},
}

func DefaultZones() Zones {
	out := make(Zones, len(deliveryZones))
	copy(out, deliveryZones)
	return out
}
