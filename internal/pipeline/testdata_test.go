package pipeline

import (
	"strings"
)

const (
	progressCSV = `Project_ID,Site,Planned_Days,Actual_Days
P1,North,120,130
P2,South,90,85
P3,East,200,230
P4,West,60,61
P5,North,150,140
P6,South,100,120
P7,East,80,80
P8,West,175,190
P9,Harbour,40,45
`
	logCSV = `Project_ID,Date,Used_Hours,Available_Hours
P1,2024-03-01,40,50
P1,2024-03-02,45,50
P2,2024-03-01,30,40
P3,2024-03-01,70,80
P3,2024-03-02,60,80
P4,2024-03-01,20,40
P5,2024-03-01,35,50
P5,2024-03-02,50,50
P6,2024-03-01,28,40
P7,2024-03-01,33,44
P8,2024-03-01,60,75
P9,2024-03-01,10,20
`
	payrollCSV = `Employee,Project_ID,Hours,Rate
E1,P1,160,42.5
E2,P3,150,38
`
	spendCSV = `Project_ID,Vendor,Total_Spend_$
P1,Acme,"$1,200,000.00"
P2,Acme,"800,000"
P3,BuildCo,2100000
P4,BuildCo,450000
P5,Acme,"$1,500,000"
P6,Stone,950000
P7,Stone,700000
P8,BuildCo,"1,800,000.00"
`
	shrinkageCSV = `Project_ID,Total_Shrinkage_$
P1,36000
P2,12000
P3,88000
P4,9000
P5,30000
P6,41000
P7,10500
P8,64000
P10,5000
`
)

func src(role Role, body string) Source {
	return Source{Name: string(role) + ".csv", Reader: strings.NewReader(body)}
}

// fullInputs returns fresh readers over the eight-project dataset.
func fullInputs() Inputs {
	return Inputs{
		RoleProgress:  src(RoleProgress, progressCSV),
		RoleLog:       src(RoleLog, logCSV),
		RolePayroll:   src(RolePayroll, payrollCSV),
		RoleSpend:     src(RoleSpend, spendCSV),
		RoleShrinkage: src(RoleShrinkage, shrinkageCSV),
	}
}

// exampleInputs is the single-project scenario P1.
func exampleInputs() Inputs {
	return Inputs{
		RoleProgress:  src(RoleProgress, "Project_ID,Planned_Days,Actual_Days\nP1,10,8\n"),
		RoleLog:       src(RoleLog, "Project_ID,Used_Hours,Available_Hours\nP1,40,50\nP1,30,50\n"),
		RolePayroll:   src(RolePayroll, "Employee,Hours\nE1,8\n"),
		RoleSpend:     src(RoleSpend, "Project_ID,Total_Spend_$\nP1,1000\n"),
		RoleShrinkage: src(RoleShrinkage, "Project_ID,Total_Shrinkage_$\nP1,50\n"),
	}
}
