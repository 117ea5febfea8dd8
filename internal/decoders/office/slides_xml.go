package office

// Typed views of the OOXML presentation parts. Element tags carry local
// names only so they match regardless of the document's prefix choices;
// the r:id/r:embed attributes need the explicit relationship namespace
// because the elements also carry a plain id attribute.

type xmlRelationships struct {
	Rels []xmlRelationship `xml:"Relationship"`
}

type xmlRelationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

type xmlPresentation struct {
	SlideIDs []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
	SlideSize *struct {
		CX int64 `xml:"cx,attr"`
		CY int64 `xml:"cy,attr"`
	} `xml:"sldSz"`
}

// --- theme ---

type xmlTheme struct {
	ClrScheme  xmlClrScheme  `xml:"themeElements>clrScheme"`
	FontScheme xmlFontScheme `xml:"themeElements>fontScheme"`
}

type xmlClrScheme struct {
	Dk1      xmlColorChoice `xml:"dk1"`
	Lt1      xmlColorChoice `xml:"lt1"`
	Dk2      xmlColorChoice `xml:"dk2"`
	Lt2      xmlColorChoice `xml:"lt2"`
	Accent1  xmlColorChoice `xml:"accent1"`
	Accent2  xmlColorChoice `xml:"accent2"`
	Accent3  xmlColorChoice `xml:"accent3"`
	Accent4  xmlColorChoice `xml:"accent4"`
	Accent5  xmlColorChoice `xml:"accent5"`
	Accent6  xmlColorChoice `xml:"accent6"`
	Hlink    xmlColorChoice `xml:"hlink"`
	FolHlink xmlColorChoice `xml:"folHlink"`
}

// xmlColorChoice is either a literal sRGB value or a system color carrying
// its last-resolved value.
type xmlColorChoice struct {
	Srgb *struct {
		Val string `xml:"val,attr"`
	} `xml:"srgbClr"`
	Sys *struct {
		LastClr string `xml:"lastClr,attr"`
	} `xml:"sysClr"`
}

func (c xmlColorChoice) hex() string {
	if c.Srgb != nil && c.Srgb.Val != "" {
		return "#" + c.Srgb.Val
	}
	if c.Sys != nil && c.Sys.LastClr != "" {
		return "#" + c.Sys.LastClr
	}
	return ""
}

type xmlFontScheme struct {
	Major struct {
		Latin struct {
			Typeface string `xml:"typeface,attr"`
		} `xml:"latin"`
	} `xml:"majorFont"`
	Minor struct {
		Latin struct {
			Typeface string `xml:"typeface,attr"`
		} `xml:"latin"`
	} `xml:"minorFont"`
}

// --- slide / layout / master common shape tree ---

type xmlSlidePart struct {
	CSld struct {
		Bg     *xmlBackground `xml:"bg"`
		SpTree xmlShapeTree   `xml:"spTree"`
	} `xml:"cSld"`
}

type xmlBackground struct {
	BgPr *struct {
		SolidFill *xmlFill `xml:"solidFill"`
		BlipFill  *struct {
			Blip *xmlBlip `xml:"blip"`
		} `xml:"blipFill"`
	} `xml:"bgPr"`
	BgRef *struct {
		Srgb *struct {
			Val string `xml:"val,attr"`
		} `xml:"srgbClr"`
		Scheme *struct {
			Val string `xml:"val,attr"`
		} `xml:"schemeClr"`
	} `xml:"bgRef"`
}

type xmlBlip struct {
	Embed    string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships embed,attr"`
	AlphaMod *struct {
		Amt int `xml:"amt,attr"`
	} `xml:"alphaModFix"`
}

type xmlShapeTree struct {
	Shapes []xmlShape `xml:"sp"`
	Pics   []xmlPic   `xml:"pic"`
	Groups []xmlGroup `xml:"grpSp"`
}

type xmlShape struct {
	NvSpPr struct {
		CNvPr struct {
			ID   string `xml:"id,attr"`
			Name string `xml:"name,attr"`
		} `xml:"cNvPr"`
		NvPr struct {
			Ph *struct {
				Type string `xml:"type,attr"`
				Idx  string `xml:"idx,attr"`
			} `xml:"ph"`
		} `xml:"nvPr"`
	} `xml:"nvSpPr"`
	SpPr   xmlShapeProps `xml:"spPr"`
	TxBody *xmlTextBody  `xml:"txBody"`
}

type xmlPic struct {
	BlipFill struct {
		Blip *xmlBlip `xml:"blip"`
	} `xml:"blipFill"`
	SpPr xmlShapeProps `xml:"spPr"`
}

type xmlGroup struct {
	GrpSpPr struct {
		Xfrm *xmlTransform `xml:"xfrm"`
	} `xml:"grpSpPr"`
	Shapes []xmlShape `xml:"sp"`
	Pics   []xmlPic   `xml:"pic"`
	Groups []xmlGroup `xml:"grpSp"`
}

type xmlShapeProps struct {
	Xfrm *xmlTransform `xml:"xfrm"`
}

type xmlTransform struct {
	Off *struct {
		X int64 `xml:"x,attr"`
		Y int64 `xml:"y,attr"`
	} `xml:"off"`
	Ext *struct {
		CX int64 `xml:"cx,attr"`
		CY int64 `xml:"cy,attr"`
	} `xml:"ext"`
	ChOff *struct {
		X int64 `xml:"x,attr"`
		Y int64 `xml:"y,attr"`
	} `xml:"chOff"`
}

// --- text body ---

type xmlTextBody struct {
	Paras []xmlParagraph `xml:"p"`
}

type xmlParagraph struct {
	PPr  *xmlParaProps `xml:"pPr"`
	Runs []xmlRun      `xml:"r"`
}

type xmlParaProps struct {
	Algn   string `xml:"algn,attr"`
	Lvl    int    `xml:"lvl,attr"`
	MarL   int64  `xml:"marL,attr"`
	Indent int64  `xml:"indent,attr"`
	BuChar *struct {
		Char string `xml:"char,attr"`
	} `xml:"buChar"`
	BuAutoNum *struct {
		Type string `xml:"type,attr"`
	} `xml:"buAutoNum"`
	BuNone *struct{} `xml:"buNone"`
	SpcBef *struct {
		Pts *struct {
			Val int `xml:"val,attr"`
		} `xml:"spcPts"`
	} `xml:"spcBef"`
	LnSpc *struct {
		Pct *struct {
			Val int `xml:"val,attr"`
		} `xml:"spcPct"`
	} `xml:"lnSpc"`
}

type xmlRun struct {
	RPr  *xmlRunProps `xml:"rPr"`
	Text string       `xml:"t"`
}

type xmlRunProps struct {
	Sz        int      `xml:"sz,attr"`
	B         string   `xml:"b,attr"`
	I         string   `xml:"i,attr"`
	U         string   `xml:"u,attr"`
	SolidFill *xmlFill `xml:"solidFill"`
	Latin     *struct {
		Typeface string `xml:"typeface,attr"`
	} `xml:"latin"`
}

type xmlFill struct {
	Srgb *struct {
		Val string `xml:"val,attr"`
	} `xml:"srgbClr"`
	Scheme *struct {
		Val string `xml:"val,attr"`
	} `xml:"schemeClr"`
}
